package message

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
)

func fakeKey(b byte) keys.PublicKey {
	k := make(keys.PublicKey, 65)
	k[0] = 4
	for i := 1; i < len(k); i++ {
		k[i] = b
	}
	return k
}

func testSigned() *SignedMessage {
	return &SignedMessage{
		Signed: Signed{
			Created: "2020-01-01T00:00:00Z",
			Nonce:   common.HexBytes{1, 2, 3},
			Payload: NewAny(&PartyCredential{
				Type: KeyAdmit,
				KeyAdmit: &KeyAdmitBody{
					PartyKey:     fakeKey(1),
					AdmitKey:     fakeKey(2),
					AdmitKeyType: KeyTypeIdentity,
				},
			}),
		},
		Signatures: []Signature{
			{Signature: "abc|def", Key: fakeKey(1)},
		},
	}
}

func TestDecodeDispatchesOnTypeURL(t *testing.T) {
	msg := testSigned()

	data, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"__type_url":"dxos.credentials.SignedMessage"`) {
		t.Fatalf("type url missing from %s", data)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	sm, ok := decoded.(*SignedMessage)
	if !ok {
		t.Fatalf("decoded %T, expected *SignedMessage", decoded)
	}
	cred, ok := sm.Credential()
	if !ok {
		t.Fatalf("payload %T, expected *PartyCredential", sm.Payload())
	}
	if cred.Type != KeyAdmit || !cred.KeyAdmit.AdmitKey.Equal(fakeKey(2)) {
		t.Fatalf("credential not preserved: %+v", cred)
	}
	if cred.KeyAdmit.AdmitKeyType != KeyTypeIdentity {
		t.Fatalf("admit key type should be IDENTITY, not %s", cred.KeyAdmit.AdmitKeyType)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"__type_url":"nope.Nothing","a":1}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestCanonicalIgnoresHiddenFieldsAndOrder(t *testing.T) {
	msg := testSigned()

	c1, err := Canonical(&msg.Signed)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(c1), "__type_url") {
		t.Fatalf("canonical form should not contain hidden fields: %s", c1)
	}

	// The same content, arriving with a different field order and an extra
	// hidden field, must produce the same bytes.
	data, err := json.Marshal(msg.Signed)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	fields["__extra"] = json.RawMessage(`"ignored"`)
	data, err = json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	var other Signed
	if err := json.Unmarshal(data, &other); err != nil {
		t.Fatal(err)
	}

	c2, err := Canonical(&other)
	if err != nil {
		t.Fatal(err)
	}
	if string(c1) != string(c2) {
		t.Fatalf("canonical forms differ:\n%s\n%s", c1, c2)
	}

	msg.Signed.Nonce = common.HexBytes{1, 2, 4}
	c3, err := Canonical(&msg.Signed)
	if err != nil {
		t.Fatal(err)
	}
	if string(c1) == string(c3) {
		t.Fatal("canonical form should change with the nonce")
	}
}

func TestCanonicalRejectsInvalidUTF8(t *testing.T) {
	signed := Signed{
		Created: "2020-01-01T00:00:00Z",
		Nonce:   common.HexBytes{1},
		Payload: NewAny(&IdentityInfo{PublicKey: fakeKey(1), DisplayName: "bad\xffname"}),
	}
	if _, err := Canonical(&signed); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}

	// U+FFFD itself is fine
	signed.Payload = NewAny(&IdentityInfo{PublicKey: fakeKey(1), DisplayName: "bad\uFFFDname"})
	if _, err := Canonical(&signed); err != nil {
		t.Fatal(err)
	}

	signed.Created = "2020-01-01T00:00:00Z\xc3"
	if _, err := Canonical(&signed); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestCredentialValidate(t *testing.T) {
	good := &PartyCredential{
		Type:      FeedAdmit,
		FeedAdmit: &FeedAdmitBody{PartyKey: fakeKey(1), FeedKey: fakeKey(3)},
	}
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}

	mismatch := &PartyCredential{
		Type:      KeyAdmit,
		FeedAdmit: &FeedAdmitBody{PartyKey: fakeKey(1), FeedKey: fakeKey(3)},
	}
	if err := mismatch.Validate(); !errors.Is(err, ErrCredentialShape) {
		t.Fatalf("expected ErrCredentialShape, got %v", err)
	}

	missing := &PartyCredential{
		Type:     KeyAdmit,
		KeyAdmit: &KeyAdmitBody{PartyKey: fakeKey(1)},
	}
	if err := missing.Validate(); err == nil {
		t.Fatal("missing admit key should fail")
	}
}

func TestEnumStrings(t *testing.T) {
	if PartyGenesis.String() != "PARTY_GENESIS" || Envelope.String() != "ENVELOPE" {
		t.Fatal("credential type names")
	}
	if Claim.String() != "CLAIM" || Begin != 0 || Claim != 4 {
		t.Fatal("greet command values")
	}
	if ParseKeyType(KeyTypeFeed.String()) != KeyTypeFeed {
		t.Fatal("key type round trip")
	}
}
