package commands

import (
	"github.com/mosaicnetworks/party/src/node"
)

// openNode initializes a node from the loaded configuration. The caller shuts
// it down.
func openNode() (*node.Node, error) {
	n := node.NewNode(&_config.Party)
	if err := n.Init(); err != nil {
		_config.Party.Logger().WithError(err).Error("Cannot initialize node")
		n.Shutdown()
		return nil, err
	}
	return n, nil
}
