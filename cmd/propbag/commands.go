package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Neumenon/propbag/propbag"
	"github.com/Neumenon/propbag/stream"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// document trims the line ending an editor or shell leaves after a document.
func document(data []byte) string {
	return strings.TrimRight(string(data), "\r\n")
}

func (a *app) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a YAML mapping as a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			bag, err := bagFromYAML(data)
			if err != nil {
				return err
			}
			doc, err := a.codec.Marshal(bag)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc)
			return err
		},
	}
}

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a document to YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			bag := propbag.NewBag()
			if err := a.codec.Unmarshal(document(data), bag); err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(entriesOf(bag.Properties())); err != nil {
				return errors.Wrap(err, "write yaml")
			}
			return enc.Close()
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [file]",
		Short: "Check a document's structure and checksum",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			st, err := a.codec.Decode(document(data))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%d properties)\n", st.Checksum(), st.Len())
			return err
		},
	}
}

func (a *app) frameCmd() *cobra.Command {
	var (
		sid      uint64
		seq      uint64
		crc      bool
		compress int
		final    bool
	)
	cmd := &cobra.Command{
		Use:   "frame [file...]",
		Short: "Wrap documents in stream frames, one frame per file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("crc") {
				crc = a.cfg.CRC
			}
			if !cmd.Flags().Changed("compress") {
				compress = a.cfg.Compress
			}
			var opts []stream.WriterOption
			if crc {
				opts = append(opts, stream.WithCRC())
			}
			if compress > 0 {
				opts = append(opts, stream.WithCompression(compress))
			}
			w := stream.NewWriter(cmd.OutOrStdout(), opts...)

			if len(args) == 0 {
				args = []string{"-"}
			}
			for i, name := range args {
				data, err := readInput(cmd, []string{name})
				if err != nil {
					return err
				}
				doc := document(data)
				if _, err := a.codec.Decode(doc); err != nil {
					return errors.Wrapf(err, "%s", name)
				}
				f := &stream.Frame{
					Version: stream.Version,
					SID:     sid,
					Seq:     seq + uint64(i),
					Kind:    stream.KindDoc,
					Payload: []byte(doc),
					Final:   final && i == len(args)-1,
				}
				if err := w.WriteFrame(f); err != nil {
					return err
				}
			}
			a.log.Infof(1, "framed %d documents on sid %d", len(args), sid)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&sid, "sid", 0, "stream id")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "sequence number of the first frame")
	cmd.Flags().BoolVar(&crc, "crc", true, "add a CRC-32 to each frame")
	cmd.Flags().IntVar(&compress, "compress", 0, "compress payloads at least this many bytes long (0 disables)")
	cmd.Flags().BoolVar(&final, "final", false, "mark the last frame final")
	return cmd
}

func (a *app) unframeCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "unframe [file]",
		Short: "Unwrap a stream of frames and print each document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("verify") {
				verify = a.cfg.Verify
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			in, err := openInput(cmd, name)
			if err != nil {
				return err
			}
			defer in.Close()

			var opts []stream.ReaderOption
			if verify {
				opts = append(opts, stream.WithDocumentVerification())
			}
			r := stream.NewReader(in, opts...)
			cur := stream.NewCursor(stream.WithCodec(a.codec))
			out := cmd.OutOrStdout()
			frames := 0
			for {
				f, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				frames++
				switch f.Kind {
				case stream.KindDoc:
					if err := cur.Process(f); err != nil {
						return err
					}
					doc, _ := f.Document()
					if _, err := fmt.Fprintln(out, doc); err != nil {
						return err
					}
				case stream.KindErr:
					a.log.Warnf("sid %d seq %d: peer error: %s", f.SID, f.Seq, f.Payload)
					if err := cur.Process(f); err != nil {
						return err
					}
				case stream.KindAck:
					if err := cur.Process(f); err != nil {
						return err
					}
					cur.Ack(f.SID, f.Seq)
				}
			}
			for _, sid := range cur.SIDs() {
				st, _ := cur.State(sid)
				a.log.Infof(1, "sid %d: last seq %d, final %v, checksum %s", sid, st.LastSeq, st.Final, st.Checksum)
			}
			a.log.Infof(1, "read %d frames", frames)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", true, "check each document's checksum")
	return cmd
}
