package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// KeyReaderWriter reads and writes the device key of a node.
type KeyReaderWriter interface {
	ReadKey() (*ecdsa.PrivateKey, error)
	WriteKey(*ecdsa.PrivateKey) error
}

// SimpleKeyfile keeps a private key as the hex dump of DumpPrivateKey in a file
// readable by its owner only.
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile returns a SimpleKeyfile backed by keyfile.
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	return &SimpleKeyfile{keyfile: keyfile}
}

// CheckFileInfo verifies that the file exists and that neither its group nor
// others have any permission on it.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("%s should only be accessible to its owner, got %o", k.keyfile, perm)
	}

	return nil
}

// ReadKey implements KeyReaderWriter.
func (k *SimpleKeyfile) ReadKey() (*ecdsa.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()
	return k.read()
}

func (k *SimpleKeyfile) read() (*ecdsa.PrivateKey, error) {
	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	d, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	return ParsePrivateKey(d)
}

// WriteKey implements KeyReaderWriter. Missing directories are created.
func (k *SimpleKeyfile) WriteKey(key *ecdsa.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()
	return k.write(key)
}

func (k *SimpleKeyfile) write(key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(k.keyfile), 0700); err != nil {
		return err
	}
	return os.WriteFile(k.keyfile, []byte(hex.EncodeToString(DumpPrivateKey(key))), 0600)
}

// ReadOrCreate reads the key, or generates and writes one if the file does not
// exist. created reports the latter. A file that exists but cannot be read is
// an error: it is never overwritten.
func (k *SimpleKeyfile) ReadOrCreate() (key *ecdsa.PrivateKey, created bool, err error) {
	k.l.Lock()
	defer k.l.Unlock()

	if _, err := os.Stat(k.keyfile); err == nil {
		key, err := k.read()
		return key, false, err
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}

	key, err = GenerateECDSAKey()
	if err != nil {
		return nil, false, err
	}
	if err := k.write(key); err != nil {
		return nil, false, err
	}
	return key, true, nil
}
