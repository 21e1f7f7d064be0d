package eapol

// Key data elements are TLVs embedded in the (decrypted) key-data field of
// an EAPOL-Key message: { type=0xDD, len, OUI[3], data-type, value... }.
// Only the GTK KDE matters here; any other KDE type is skipped.

const (
	kdeType       = 0xDD
	kdeHeaderLen  = 2 + 3 + 1 // type, len, OUI, data-type
	gtkValueHdrLen = 2         // key-id/tx byte + reserved byte, before the raw GTK
)

var kdeOUIGTK = [3]byte{0x00, 0x0F, 0xAC}

const kdeDataTypeGTK = 1

// GTKFromKDEs walks a key-data buffer (already unwrapped via
// wcrypto.KeyUnwrap) looking for a GTK KDE, returning the GTK bytes and
// its key index (bits 0-1 of the KDE's key-id octet). It is total: any
// truncated or self-overrunning KDE stops the walk without error. A GTK
// KDE whose key index is 0 is invalid per fetch_gtk ("key idx is
// non-zero for GTK") and aborts the walk the same way the reference
// does — not found, rather than skipped in favor of a later KDE.
func GTKFromKDEs(buf []byte) (gtk []byte, keyIdx uint8, found bool) {
	for len(buf) >= kdeHeaderLen {
		typ := buf[0]
		length := int(buf[1])
		if typ != kdeType {
			// Non-vendor-specific (or padding) entries are plain IEs of
			// the same (type,len,...) shape; skip len bytes.
			if 2+length > len(buf) {
				return nil, 0, false
			}
			buf = buf[2+length:]
			continue
		}
		if 2+length > len(buf) {
			return nil, 0, false
		}
		value := buf[2 : 2+length]
		buf = buf[2+length:]

		if len(value) < 4 {
			continue
		}
		oui := [3]byte{value[0], value[1], value[2]}
		dataType := value[3]
		rest := value[4:]
		if oui != kdeOUIGTK || dataType != kdeDataTypeGTK {
			continue
		}
		if len(rest) < gtkValueHdrLen {
			continue
		}
		keyIdx = rest[0] & 0x03
		if keyIdx == 0 {
			return nil, 0, false
		}
		return append([]byte(nil), rest[gtkValueHdrLen:]...), keyIdx, true
	}
	return nil, 0, false
}
