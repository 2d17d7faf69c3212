package keys

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"testing"
)

func TestSimpleKeyfile(t *testing.T) {
	dir, err := ioutil.TempDir("", "party")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	simpleKeyfile := NewSimpleKeyfile(path.Join(dir, "priv_key"))

	// Try a read, should get nothing
	key, err := simpleKeyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should generate an error")
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	// Initialize a key and try a write
	key, _ = GenerateECDSAKey()

	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Try a read, should get key
	nKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(DumpPrivateKey(nKey), DumpPrivateKey(key)) {
		t.Fatalf("Keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir, err := ioutil.TempDir("", "party")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	key, _ := GenerateECDSAKey()
	rawKey := hex.EncodeToString(DumpPrivateKey(key))

	badKeyPath := path.Join(dir, "priv_key_bad")

	shouldErr := []os.FileMode{
		0777, 0766, 0744,
		0677, 0666, 0644,
	}

	for _, fm := range shouldErr {
		os.Remove(badKeyPath)
		ioutil.WriteFile(badKeyPath, []byte(rawKey), fm)
		os.Chmod(badKeyPath, fm)

		badKeyFile := NewSimpleKeyfile(badKeyPath)

		if _, err := badKeyFile.ReadKey(); err == nil {
			t.Fatalf("%o || badKeyFile should return permissions error", fm)
		}
	}

	goodKeyPath := path.Join(dir, "priv_key_good")
	ioutil.WriteFile(goodKeyPath, []byte(rawKey), 0600)

	if _, err := NewSimpleKeyfile(goodKeyPath).ReadKey(); err != nil {
		t.Fatalf("goodKeyFile should not return error. Got %v", err)
	}
}

func TestSignBytes(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	priv, err := kp.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	msg := []byte("J'aime mieux forger mon ame que la meubler")

	sig, err := SignBytes(priv, msg)
	if err != nil {
		t.Fatal(err)
	}

	if !VerifyBytes(kp.PublicKey, msg, sig) {
		t.Fatalf("signature should verify")
	}

	if VerifyBytes(kp.PublicKey, []byte("something else"), sig) {
		t.Fatalf("signature of a different message should not verify")
	}

	other, _ := GenerateKeyPair()
	if VerifyBytes(other.PublicKey, msg, sig) {
		t.Fatalf("signature should not verify with another key")
	}

	if VerifyBytes(kp.PublicKey, msg, "not|a|signature") {
		t.Fatalf("malformed signature should not verify")
	}
}

func TestSignatureEncoding(t *testing.T) {
	privKey, _ := GenerateECDSAKey()

	msgHashBytes := []byte("0123456789abcdef0123456789abcdef")

	r, s, _ := Sign(privKey, msgHashBytes)

	encodedSig := EncodeSignature(r, s)

	dr, ds, err := DecodeSignature(encodedSig)
	if err != nil {
		t.Fatal(err)
	}

	if r.Cmp(dr) != 0 {
		t.Fatalf("Signature Rs defer")
	}

	if s.Cmp(ds) != 0 {
		t.Fatalf("Signature Ss defer")
	}

	if _, _, err := DecodeSignature("zz!|10"); err == nil {
		t.Fatalf("DecodeSignature should reject malformed components")
	}
}

func TestKeyPairValidate(t *testing.T) {
	kp, _ := GenerateKeyPair()
	if err := kp.Validate(); err != nil {
		t.Fatal(err)
	}

	other, _ := GenerateKeyPair()
	mixed := &KeyPair{PublicKey: kp.PublicKey, SecretKey: other.SecretKey}
	if err := mixed.Validate(); err != ErrKeyPairMismatch {
		t.Fatalf("mismatched pair should fail with ErrKeyPairMismatch, got %v", err)
	}

	if err := PublicKey([]byte{1, 2, 3}).Validate(); err == nil {
		t.Fatalf("garbage public key should not validate")
	}
}

func TestPublicKeyText(t *testing.T) {
	kp, _ := GenerateKeyPair()

	text, err := kp.PublicKey.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var pk PublicKey
	if err := pk.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}

	if !pk.Equal(kp.PublicKey) {
		t.Fatalf("public key should survive a text round trip")
	}
	if pk.Hex() != string(text) {
		t.Fatalf("Hex and MarshalText should agree")
	}
}

func TestReadOrCreate(t *testing.T) {
	keyfile := NewSimpleKeyfile(path.Join(t.TempDir(), "nested", "priv_key"))

	key, created, err := keyfile.ReadOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatalf("first call should create the key")
	}

	again, created, err := keyfile.ReadOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatalf("second call should read the key")
	}
	if !reflect.DeepEqual(DumpPrivateKey(again), DumpPrivateKey(key)) {
		t.Fatalf("Keys do not match")
	}
}

func TestParsePrivateKeyRange(t *testing.T) {
	if _, err := ParsePrivateKey(make([]byte, 32)); err == nil {
		t.Fatalf("zero scalar should be rejected")
	}
	if _, err := ParsePrivateKey(secp256k1N.Bytes()); err == nil {
		t.Fatalf("N should be rejected")
	}
	if _, err := ParsePrivateKey([]byte{1, 2, 3}); err == nil {
		t.Fatalf("short dump should be rejected")
	}
}
