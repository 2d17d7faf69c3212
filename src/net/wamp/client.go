package wamp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
	pnet "github.com/mosaicnetworks/party/src/net"
	"github.com/sirupsen/logrus"
)

// Connect opens a connection to the WAMP router at routerURL. For wss URLs the
// certificate in caFile, when it exists, is trusted in addition to the
// platform's.
func Connect(
	routerURL string,
	realm string,
	caFile string,
	insecureSkipVerify bool,
	responseTimeout time.Duration,
	logger *logrus.Entry,
) (*client.Client, error) {

	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
	}

	if strings.HasPrefix(routerURL, "wss://") {
		tlscfg, err := tlsConfig(caFile, insecureSkipVerify, logger)
		if err != nil {
			return nil, err
		}
		cfg.TlsCfg = tlscfg
	}

	return client.ConnectNet(context.Background(), routerURL, cfg)
}

func tlsConfig(caFile string, insecureSkipVerify bool, logger *logrus.Entry) (*tls.Config, error) {
	tlscfg := &tls.Config{}

	if insecureSkipVerify {
		logger.Debug("Skip Verify. Accepting any certificate provided by the server.")
		tlscfg.InsecureSkipVerify = true
		return tlscfg, nil
	}

	if _, err := os.Stat(caFile); caFile == "" || os.IsNotExist(err) {
		logger.Debugf("No certificate file found. Relying on platform trusted certificates.")
		return tlscfg, nil
	}

	// Load PEM-encoded certificate to trust.
	certPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}

	// Create CertPool containing the certificate to trust.
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(certPEM) {
		return nil, errors.New("Failed to import certificate to trust")
	}
	tlscfg.RootCAs = roots

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("Failed to decode certificate to trust")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}

	logger.Debugf("Trusting certificate %s with CN: %s", caFile, cert.Subject.CommonName)

	// Set ServerName in TLS config to CN from trusted cert so that
	// certificate will validate if CN does not match DNS name.
	tlscfg.ServerName = cert.Subject.CommonName

	return tlscfg, nil
}

// Transport implements greet.Transport by calling the greeting procedure of a
// rendezvous key.
type Transport struct {
	client    *client.Client
	procedure string
	peerID    string
	timeout   time.Duration
}

// NewTransport returns a Transport reaching the session at rendezvous. peerID
// identifies the caller to the responder.
func NewTransport(cli *client.Client, rendezvous keys.PublicKey, peerID string, timeout time.Duration) *Transport {
	return &Transport{
		client:    cli,
		procedure: Procedure(rendezvous),
		peerID:    peerID,
		timeout:   timeout,
	}
}

// Call sends cmd and waits for the response.
func (t *Transport) Call(ctx context.Context, cmd *message.Command) (message.Message, error) {
	raw, err := message.Encode(cmd)
	if err != nil {
		return nil, err
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	callArgs := wamp.List{
		t.peerID,
		string(raw),
	}

	result, err := t.client.Call(ctx, t.procedure, nil, callArgs, nil, nil)
	if err != nil {
		return nil, err
	}

	if len(result.Arguments) != 1 {
		return nil, fmt.Errorf("result should contain 1 argument, not %d", len(result.Arguments))
	}
	reply, ok := wamp.AsString(result.Arguments[0])
	if !ok {
		return nil, errors.New("Error reading result argument")
	}

	return pnet.DecodeReply([]byte(reply))
}
