// Package propbag implements a property-bag text codec.
//
// A type declares named, typed properties (integer, real, string). Marshal
// writes them as one self-describing string with a trailing checksum;
// Unmarshal reads them back and refuses documents that were damaged.
//
// # Document Format
//
//	Document := Token* Checksum
//	Token    := Tag Length Payload
//	Tag      := 'i' | 'r' | 's'
//	Length   := 3 decimal digits, len(Payload)
//	Payload  := Name '=' Text
//	Checksum := 10 decimal characters
//
// Names are 1 to 10 bytes and may not contain '='. Payloads are at most 999
// bytes. Lengths are counted in bytes.
//
// # Checksum
//
// Every payload is hashed (32-bit FNV-1a) and the hashes are summed. The sum
// is written in decimal, truncated to its first 10 characters or left-padded
// with '0'. Because the sum is commutative, reordering tokens does not change
// it. The checksum detects accidental corruption; it is not a security
// mechanism.
//
// # Example
//
//	type Account struct{ Amount int64 }
//
//	func (a *Account) WriteProperties(enc *propbag.Encoder) error {
//		return enc.AddInt("amount", a.Amount)
//	}
//
//	func (a *Account) ReadProperties(st *propbag.Store) {
//		a.Amount = st.Int("amount")
//	}
//
// Marshal(&Account{Amount: 42}) returns "i009amount=421105464446".
//
// # Failure Behavior
//
// Encoding errors (a name too long, a payload too long) abort Marshal.
// Decoding never panics and never calls ReadProperties for a bad document;
// the target is left exactly as it was and the error says why.
package propbag
