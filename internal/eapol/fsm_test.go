package eapol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wsupp/internal/wcrypto"
)

func TestFSMPacket1DerivesPTKAndPreparesMessage2(t *testing.T) {
	ownMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	aa := [6]byte{0x02, 0, 0, 0, 0, 1}
	pmk := make([]byte, 32)
	for i := range pmk {
		pmk[i] = byte(i)
	}

	f := NewFSM(ownMAC, aa, pmk, []byte("Test"), []byte{0x30, 0x02, 0x01, 0x00}, false)
	f.Prime()
	f.AllowSends() // association already complete in this scenario

	anonce := [32]byte{}
	for i := range anonce {
		anonce[i] = 0x01
	}
	msg1 := &KeyFrame{
		KeyInfo:   kiKeyAck | kiKeyTypePairwise,
		ReplayCtr: 1,
		Nonce:     anonce,
	}
	raw := msg1.Marshal()

	result, err := f.HandleIncoming(raw, aa)
	require.NoError(t, err)
	require.NotNil(t, result.Send)
	assert.Equal(t, StateWaiting3_4, f.State())

	sent, err := ParseKeyFrame(result.Send)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sent.ReplayCtr)
	assert.NotZero(t, sent.MIC)
}

func TestFSMPrimingRace(t *testing.T) {
	ownMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	aa := [6]byte{0x02, 0, 0, 0, 0, 1}
	pmk := make([]byte, 32)

	f := NewFSM(ownMAC, aa, pmk, []byte("Test"), nil, false)
	f.Prime() // association NOT yet complete

	msg1 := &KeyFrame{KeyInfo: kiKeyAck | kiKeyTypePairwise, ReplayCtr: 1, Nonce: [32]byte{1}}
	result, err := f.HandleIncoming(msg1.Marshal(), aa)
	require.NoError(t, err)
	assert.Nil(t, result.Send, "2/4 must not transmit before sends are allowed")
	assert.Equal(t, StateWaiting2_4, f.State())

	out := f.AllowSends()
	assert.NotNil(t, out, "pending 2/4 is flushed once sends are allowed")
	assert.Equal(t, StateWaiting3_4, f.State())
}

func TestFSMRejectsFrameFromWrongAP(t *testing.T) {
	ownMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	aa := [6]byte{0x02, 0, 0, 0, 0, 1}
	other := [6]byte{0x02, 0, 0, 0, 0, 2}
	pmk := make([]byte, 32)

	f := NewFSM(ownMAC, aa, pmk, nil, nil, false)
	f.Prime()
	f.AllowSends()

	msg1 := &KeyFrame{KeyInfo: kiKeyAck | kiKeyTypePairwise, ReplayCtr: 1}
	_, err := f.HandleIncoming(msg1.Marshal(), other)
	assert.Error(t, err)
}

// TestFSMFullHandshakeToNegotiated drives packet 1/4 through a synthetic
// packet 3/4 built the way an AP would: PTK derived independently on the
// "AP side" from the same PMK/nonces, key data wrapped with KEK, MIC
// signed with KCK.
func TestFSMFullHandshakeToNegotiated(t *testing.T) {
	ownMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	aa := [6]byte{0x02, 0, 0, 0, 0, 1}
	pmk := make([]byte, 32)
	for i := range pmk {
		pmk[i] = byte(i * 3)
	}

	f := NewFSM(ownMAC, aa, pmk, []byte("Test"), []byte{0x30, 0x02, 0x01, 0x00}, false)
	f.Prime()
	f.AllowSends()

	anonce := [32]byte{}
	for i := range anonce {
		anonce[i] = 0x02
	}
	msg1 := &KeyFrame{KeyInfo: kiKeyAck | kiKeyTypePairwise, ReplayCtr: 5, Nonce: anonce}
	result, err := f.HandleIncoming(msg1.Marshal(), aa)
	require.NoError(t, err)
	msg2, err := ParseKeyFrame(result.Send)
	require.NoError(t, err)
	snonce := msg2.Nonce

	// Derive the same PTK an AP would, from the same inputs.
	apPTK := wcrypto.DerivePTK(pmk, aa[:], ownMAC[:], anonce[:], snonce[:])
	kck := apPTK[0:16]
	kek := apPTK[16:32]

	gtk := make([]byte, 16)
	for i := range gtk {
		gtk[i] = byte(0x40 + i)
	}
	kde := buildGTKKDE(gtk, 2)
	wrapped, err := wcrypto.KeyWrap(kek, padTo8(kde))
	require.NoError(t, err)

	msg3 := &KeyFrame{
		KeyInfo:   kiKeyAck | kiKeyMIC | kiKeyTypePairwise | kiInstall | kiSecure | kiEncryptedKeyData,
		ReplayCtr: 6,
		Nonce:     anonce,
		KeyData:   wrapped,
	}
	signed := signWithKCK(msg3, kck)

	result3, err := f.HandleIncoming(signed, aa)
	require.NoError(t, err)
	assert.True(t, result3.Negotiated)
	assert.Equal(t, StateNegotiated, f.State())
	assert.Equal(t, gtk, result3.InstallGTK)
	assert.Equal(t, uint8(2), result3.GTKKeyIdx)
	assert.Len(t, result3.InstallPTK, 16)
}

func TestFSMRejectsReplayedPacket3(t *testing.T) {
	ownMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	aa := [6]byte{0x02, 0, 0, 0, 0, 1}
	pmk := make([]byte, 32)

	f := NewFSM(ownMAC, aa, pmk, nil, nil, false)
	f.Prime()
	f.AllowSends()

	anonce := [32]byte{1}
	msg1 := &KeyFrame{KeyInfo: kiKeyAck | kiKeyTypePairwise, ReplayCtr: 5, Nonce: anonce}
	_, err := f.HandleIncoming(msg1.Marshal(), aa)
	require.NoError(t, err)

	msg3 := &KeyFrame{
		KeyInfo:   kiKeyAck | kiKeyMIC | kiKeyTypePairwise | kiInstall | kiSecure | kiEncryptedKeyData,
		ReplayCtr: 5, // equal, not strictly greater: must be rejected
		Nonce:     anonce,
	}
	_, err = f.HandleIncoming(msg3.Marshal(), aa)
	assert.Error(t, err)
}

// --- test helpers below emulate the AP side of the handshake ---

func buildGTKKDE(gtk []byte, keyIdx uint8) []byte {
	value := []byte{kdeOUIGTK[0], kdeOUIGTK[1], kdeOUIGTK[2], kdeDataTypeGTK}
	value = append(value, keyIdx, 0)
	value = append(value, gtk...)
	kde := []byte{kdeType, byte(len(value))}
	kde = append(kde, value...)
	return kde
}

func padTo8(b []byte) []byte {
	for len(b)%8 != 0 {
		b = append(b, 0)
	}
	return b
}

func signWithKCK(frame *KeyFrame, kck []byte) []byte {
	frame.MIC = [16]byte{}
	body := frame.Marshal()
	mic := wcrypto.DeriveMIC(kck, body)
	copy(frame.MIC[:], mic)
	return frame.Marshal()
}
