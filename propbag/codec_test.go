package propbag

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// account is a minimal client type used throughout the tests.
type account struct {
	Amount int64
	Owner  string
	Rate   float64
}

func (a *account) WriteProperties(enc *Encoder) error {
	if err := enc.AddInt("amount", a.Amount); err != nil {
		return err
	}
	if err := enc.AddString("owner", a.Owner); err != nil {
		return err
	}
	return enc.AddReal("rate", a.Rate)
}

func (a *account) ReadProperties(st *Store) {
	a.Amount = st.Int("amount")
	a.Owner = st.Str("owner")
	a.Rate = st.Real("rate")
}

// amountOnly writes a single integer property.
type amountOnly struct {
	Amount int64
	reads  int
}

func (a *amountOnly) WriteProperties(enc *Encoder) error {
	return enc.AddProperty("amount", a.Amount)
}

func (a *amountOnly) ReadProperties(st *Store) {
	a.reads++
	a.Amount = st.Int("amount")
}

// hookFunc adapts a function to Serializable.
type hookFunc func(enc *Encoder) error

func (f hookFunc) WriteProperties(enc *Encoder) error { return f(enc) }

func TestMarshal_ConcreteDocument(t *testing.T) {
	doc, err := Marshal(&amountOnly{Amount: 42})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := "i009amount=42" + "1105464446"
	if doc != want {
		t.Errorf("got %q, want %q", doc, want)
	}

	var got amountOnly
	if err := Unmarshal(doc, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Amount != 42 {
		t.Errorf("Amount = %d, want 42", got.Amount)
	}
	if got.reads != 1 {
		t.Errorf("ReadProperties called %d times, want 1", got.reads)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   account
	}{
		{"zero", account{}},
		{"typical", account{Amount: 42, Owner: "Ada", Rate: 0.5}},
		{"negative", account{Amount: -17, Owner: "-", Rate: -0.001}},
		{"max int", account{Amount: math.MaxInt64, Rate: math.MaxFloat64}},
		{"min int", account{Amount: math.MinInt64, Rate: math.SmallestNonzeroFloat64}},
		{"awkward float", account{Rate: 0.1 + 0.2}},
		{"large float", account{Rate: 1e21}},
		{"infinity", account{Rate: math.Inf(-1)}},
		{"separator in value", account{Owner: "a=b=c"}},
		{"digits in value", account{Owner: "0000000000"}},
		{"unicode", account{Owner: "Zoë ✓"}},
		{"long value", account{Owner: strings.Repeat("x", MaxPayloadLen-len("owner="))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Marshal(&tt.in)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			var got account
			if err := Unmarshal(doc, &got); err != nil {
				t.Fatalf("Unmarshal(%q) failed: %v", doc, err)
			}
			if diff := cmp.Diff(tt.in, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_NaN(t *testing.T) {
	doc, err := Marshal(&account{Rate: math.NaN()})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got account
	if err := Unmarshal(doc, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !math.IsNaN(got.Rate) {
		t.Errorf("Rate = %v, want NaN", got.Rate)
	}
}

func TestMarshal_Idempotent(t *testing.T) {
	a := &account{Amount: 7, Owner: "same", Rate: 2.5}
	first, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	second, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if first != second {
		t.Errorf("documents differ:\n  first:  %q\n  second: %q", first, second)
	}
}

func TestMarshal_NameBoundary(t *testing.T) {
	tests := []struct {
		name    string
		prop    string
		wantErr error
	}{
		{"eight bytes", "12345678", nil},
		{"ten bytes", "1234567890", nil},
		{"eleven bytes", "12345678901", ErrNameTooLong},
		{"empty", "", ErrInvalidName},
		{"separator", "a=b", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(hookFunc(func(enc *Encoder) error {
				return enc.AddProperty(tt.prop, 5)
			}))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshal_PayloadBoundary(t *testing.T) {
	// "s=" plus 997 bytes is exactly 999.
	fits := strings.Repeat("v", MaxPayloadLen-2)
	doc, err := Marshal(hookFunc(func(enc *Encoder) error {
		return enc.AddString("s", fits)
	}))
	if err != nil {
		t.Fatalf("999-byte payload failed: %v", err)
	}
	if !strings.HasPrefix(doc, "s999s=") {
		t.Errorf("unexpected token header: %q", doc[:6])
	}

	_, err = Marshal(hookFunc(func(enc *Encoder) error {
		return enc.AddString("s", fits+"v")
	}))
	if !errors.Is(err, ErrPayloadTooLong) {
		t.Errorf("got error %v, want ErrPayloadTooLong", err)
	}
}

func TestEncoder_ValidatesBeforeWriting(t *testing.T) {
	enc := &Encoder{}
	if err := enc.AddInt("ok", 1); err != nil {
		t.Fatalf("AddInt failed: %v", err)
	}
	before := enc.sb.String()
	sum := enc.sum

	if err := enc.AddInt("much_too_long", 2); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("got error %v, want ErrNameTooLong", err)
	}
	if enc.sb.String() != before {
		t.Errorf("buffer changed on error: %q -> %q", before, enc.sb.String())
	}
	if enc.sum != sum {
		t.Errorf("checksum changed on error: %d -> %d", sum, enc.sum)
	}
	if enc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", enc.Len())
	}
}

func TestEncoder_StickyError(t *testing.T) {
	// A hook that ignores the error must still fail Marshal.
	_, err := Marshal(hookFunc(func(enc *Encoder) error {
		enc.AddInt("12345678901", 1)
		if err := enc.AddInt("fine", 2); !errors.Is(err, ErrNameTooLong) {
			t.Errorf("later Add returned %v, want the first error", err)
		}
		return nil
	}))
	if !errors.Is(err, ErrNameTooLong) {
		t.Errorf("got error %v, want ErrNameTooLong", err)
	}
}

func TestEncoder_AddPropertyTypes(t *testing.T) {
	tests := []struct {
		value any
		token string
	}{
		{int(-1), "i004v=-1"},
		{int8(8), "i003v=8"},
		{int16(16), "i004v=16"},
		{int32(32), "i004v=32"},
		{int64(64), "i004v=64"},
		{uint(1), "i003v=1"},
		{uint8(255), "i005v=255"},
		{uint16(7), "i003v=7"},
		{uint32(9), "i003v=9"},
		{uint64(10), "i004v=10"},
		{float32(0.5), "r005v=0.5"},
		{2.25, "r006v=2.25"},
		{"hi", "s004v=hi"},
		{Str("ignored", "named"), "s007v=named"},
	}

	for _, tt := range tests {
		enc := &Encoder{}
		if err := enc.AddProperty("v", tt.value); err != nil {
			t.Errorf("AddProperty(%T) failed: %v", tt.value, err)
			continue
		}
		if got := enc.sb.String(); got != tt.token {
			t.Errorf("AddProperty(%T): got %q, want %q", tt.value, got, tt.token)
		}
	}
}

func TestEncoder_AddPropertyUnsupported(t *testing.T) {
	for _, v := range []any{true, nil, []int{1}, uint64(math.MaxUint64)} {
		enc := &Encoder{}
		if err := enc.AddProperty("v", v); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("AddProperty(%#v): got %v, want ErrUnsupportedType", v, err)
		}
	}
}

func TestUnmarshal_ChecksumSensitivity(t *testing.T) {
	orig := &account{Amount: 42, Owner: "Ada", Rate: 0.5}
	doc, err := Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	tokens, _, err := Tokenize(doc)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	// Flip every payload byte in turn.
	for _, tok := range tokens {
		start := tok.Offset + 1 + LengthWidth
		for i := start; i < start+len(tok.Payload); i++ {
			b := []byte(doc)
			if b[i] == 'Z' {
				b[i] = 'Y'
			} else {
				b[i] = 'Z'
			}

			target := account{Amount: -1, Owner: "untouched", Rate: -1}
			err := Unmarshal(string(b), &target)
			if !IsCorrupt(err) {
				t.Fatalf("flip at %d: got error %v, want corruption", i, err)
			}
			if target != (account{Amount: -1, Owner: "untouched", Rate: -1}) {
				t.Fatalf("flip at %d: target mutated: %+v", i, target)
			}
		}
	}
}

func TestUnmarshal_PayloadChangeIsMismatch(t *testing.T) {
	doc := "i009amount=43" + "1105464446"
	target := amountOnly{Amount: 1}

	err := Unmarshal(doc, &target)
	var mismatch *ChecksumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got error %v, want *ChecksumMismatchError", err)
	}
	if mismatch.Claimed != "1105464446" {
		t.Errorf("Claimed = %q", mismatch.Claimed)
	}
	if mismatch.Computed.String() != "1122242065" {
		t.Errorf("Computed = %s, want 1122242065", mismatch.Computed)
	}
	if target.Amount != 1 || target.reads != 0 {
		t.Errorf("target mutated: %+v", target)
	}
}

func TestUnmarshal_TruncatedChecksum(t *testing.T) {
	doc, err := Marshal(&amountOnly{Amount: 42})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	target := amountOnly{Amount: 99}
	err = Unmarshal(doc[:len(doc)-1], &target)
	if !IsCorrupt(err) {
		t.Errorf("got error %v, want corruption", err)
	}
	if target.Amount != 99 || target.reads != 0 {
		t.Errorf("target mutated: %+v", target)
	}
	if Load(doc[:len(doc)-1], &target) {
		t.Error("Load reported success for a truncated document")
	}
}

func TestUnmarshal_OrderIndependent(t *testing.T) {
	doc, err := Marshal(&account{Amount: 42, Owner: "Ada", Rate: 0.5})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	tokens, _, err := Tokenize(doc)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	// Reverse the tokens but keep the original trailer.
	var sb strings.Builder
	for i := len(tokens) - 1; i >= 0; i-- {
		sb.WriteString(tokens[i].String())
	}
	sb.WriteString(doc[len(doc)-ChecksumWidth:])
	reordered := sb.String()
	if reordered == doc {
		t.Fatal("reordering produced the same document")
	}

	var got account
	if err := Unmarshal(reordered, &got); err != nil {
		t.Fatalf("Unmarshal of reordered document failed: %v", err)
	}
	if diff := cmp.Diff(account{Amount: 42, Owner: "Ada", Rate: 0.5}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_LaterValueWins(t *testing.T) {
	doc, err := Marshal(hookFunc(func(enc *Encoder) error {
		enc.AddInt("amount", 1)
		enc.AddInt("amount", 2)
		return enc.Err()
	}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.HasPrefix(doc, "i008amount=1i008amount=2") {
		t.Errorf("unexpected document %q", doc)
	}

	var got amountOnly
	if err := Unmarshal(doc, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Amount != 2 {
		t.Errorf("Amount = %d, want 2", got.Amount)
	}
}

func TestUnmarshal_EmptyDocument(t *testing.T) {
	doc, err := Marshal(hookFunc(func(*Encoder) error { return nil }))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if doc != "0000000000" {
		t.Errorf("got %q, want ten zeros", doc)
	}

	target := amountOnly{Amount: 5}
	if err := Unmarshal(doc, &target); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	// The hook runs and sees no properties.
	if target.Amount != 0 || target.reads != 1 {
		t.Errorf("got %+v, want Amount 0 after one read", target)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"short", "123456789"},
		{"unknown tag", "q003a=1" + "0000000000"},
		{"bad length", "i0x3a=1" + "0000000000"},
		{"signed length", "i+03a=1" + "0000000000"},
		{"header into checksum", "i0" + "0000000000"},
		{"overlaps checksum", "i050a=1" + "0000000000"},
		{"no separator", "i002ab" + "0000000000"},
		{"bad int", "i003a=x" + "0000000000"},
		{"bad real", "r007a=1.2.3" + "0000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := amountOnly{Amount: 7}
			err := Unmarshal(tt.doc, &target)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("got error %v, want ErrMalformed", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("got %T, want *ParseError", err)
			}
			if target.Amount != 7 || target.reads != 0 {
				t.Errorf("target mutated: %+v", target)
			}
		})
	}
}

func TestUnmarshal_MalformedKeepsCause(t *testing.T) {
	err := Unmarshal("i003a=x"+"0000000000", &amountOnly{})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got error %v, want ErrMalformed", err)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("errors.Is(%v, strconv.ErrSyntax) = false", err)
	}
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) || numErr.Func != "ParseInt" {
		t.Errorf("errors.As(%v, *strconv.NumError) = %+v", err, numErr)
	}

	// Structural errors carry no cause.
	var pe *ParseError
	if err := Unmarshal("123456789", &amountOnly{}); !errors.As(err, &pe) || pe.Err != nil {
		t.Errorf("short document: got %v", err)
	}
}

func TestUnmarshal_TruncatedChecksumSum(t *testing.T) {
	// Ten payloads whose hash sum has eleven digits.
	doc, err := Marshal(hookFunc(func(enc *Encoder) error {
		for i := 0; i < 10; i++ {
			enc.AddInt("a", int64(i))
		}
		return enc.Err()
	}))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got := doc[len(doc)-ChecksumWidth:]; got != "1586996973" {
		t.Errorf("trailer = %q, want 1586996973", got)
	}

	st, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if st.Checksum() != 15869969731 {
		t.Errorf("Checksum() = %d, want 15869969731", st.Checksum())
	}
	if v := st.Int("a"); v != 9 {
		t.Errorf("a = %d, want 9", v)
	}
}

func TestCodec_RefusalHandler(t *testing.T) {
	var refused []error
	logs := &recordingLogger{}
	c := New(WithLogger(logs), WithRefusalHandler(func(err error) {
		refused = append(refused, err)
	}))

	target := amountOnly{}
	if c.Load("garbage", &target) {
		t.Fatal("Load succeeded on garbage")
	}
	if len(refused) != 1 || !errors.Is(refused[0], ErrMalformed) {
		t.Errorf("refusals = %v", refused)
	}
	if len(logs.warnings) != 1 {
		t.Errorf("warnings = %q, want one", logs.warnings)
	}

	doc, err := c.Marshal(&amountOnly{Amount: 3})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !c.Load(doc, &target) || target.Amount != 3 {
		t.Errorf("Load failed: %+v", target)
	}
	if len(refused) != 1 {
		t.Errorf("handler called for a good document")
	}
}

func TestCodec_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := &account{Amount: int64(i), Owner: "worker", Rate: float64(i) / 4}
			for j := 0; j < 100; j++ {
				doc, err := c.Marshal(in)
				if err != nil {
					t.Errorf("Marshal failed: %v", err)
					return
				}
				var out account
				if err := c.Unmarshal(doc, &out); err != nil {
					t.Errorf("Unmarshal failed: %v", err)
					return
				}
				if out != *in {
					t.Errorf("got %+v, want %+v", out, *in)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestVerify(t *testing.T) {
	sum, err := Verify("i009amount=42" + "1105464446")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sum != 1105464446 {
		t.Errorf("sum = %d", sum)
	}

	if _, err := Verify("i009amount=42" + "1105464447"); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("got %v, want ErrChecksumMismatch", err)
	}
}

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Label() string { return "test" }
func (l *recordingLogger) Info(int32, ...interface{}) {}
func (l *recordingLogger) Infof(int32, string, ...interface{}) {}
func (l *recordingLogger) Errorf(string, ...interface{}) {}
func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, format)
}
