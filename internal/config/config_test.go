package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/conf"
)

func TestSampleConfig(t *testing.T) {
	var c Config
	require.NoError(t, conf.Load("../../etc/nftminter.yaml", &c))

	assert.Equal(t, "ETH-Rinkeby", c.Chain.Name)
	assert.Equal(t, WalletModeNode, c.Wallet.Mode)
	assert.Equal(t, "makeAnEpicNFT", c.Contract.MintMethod)
	assert.Equal(t, "https://testnets.opensea.io/collection/squarenft-iy1q3coxs5", c.Links.Collection)
	assert.Equal(t, "https://twitter.com/smoothlikebuddy", c.Links.Social)
	assert.Equal(t, 64, c.Notify.QueueSize)
	assert.Empty(t, c.Notify.Amqp.Url)
}
