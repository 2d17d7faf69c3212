package node

import (
	"os"

	"github.com/gammazero/nexus/v3/client"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/net/wamp"
)

// startWAMP registers the greeting procedure of the node on the WAMP router,
// starting the router first when the node runs one.
func (n *Node) startWAMP() error {
	var cli *client.Client
	var err error

	if n.conf.WAMPListen != "" {
		certFile, keyFile := "", ""
		if _, err := os.Stat(n.conf.CertFile()); err == nil {
			certFile, keyFile = n.conf.CertFile(), n.conf.CertKeyFile()
		}

		n.router, err = wamp.NewServer(n.conf.WAMPListen, n.conf.WAMPRealm, certFile, keyFile, n.logger.WithField("component", "wamp-server"))
		if err != nil {
			return err
		}
		go n.router.Run()

		cli, err = n.router.ConnectLocal()
	} else {
		cli, err = n.connectWAMP()
	}
	if err != nil {
		return err
	}

	n.responder = wamp.NewResponder(cli, n.Handler(), n.logger.WithField("component", "wamp-responder"))
	return n.responder.Listen(n.RendezvousKey())
}

func (n *Node) connectWAMP() (*client.Client, error) {
	return wamp.Connect(
		n.conf.WAMPAddr,
		n.conf.WAMPRealm,
		n.conf.CertFile(),
		n.conf.WAMPSkipVerify,
		n.conf.Timeout,
		n.logger.WithField("component", "wamp-client"),
	)
}

// WAMPDialer connects to the configured WAMP router and returns a Dialer
// reaching greeting sessions through it, along with a function closing the
// connection.
func (n *Node) WAMPDialer() (Dialer, func() error, error) {
	cli, err := n.connectWAMP()
	if err != nil {
		return nil, nil, err
	}
	peerID := n.RendezvousKey().Hex()
	dial := func(rendezvous keys.PublicKey) (greet.Transport, error) {
		return wamp.NewTransport(cli, rendezvous, peerID, n.conf.Timeout), nil
	}
	return dial, cli.Close, nil
}
