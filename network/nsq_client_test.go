package network_test

import (
	"testing"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNSQEnqueue(t *testing.T) {
	client := network.NewNSQClient(nsqServer.HTTPAddr())
	err := client.Enqueue(constants.TopicVerification, "owner-0001/file-0001")
	require.Nil(t, err)
	err = client.Enqueue(constants.TopicVerification, "owner-0001/file-0002")
	assert.Nil(t, err)
}

func TestNSQEnqueueBadTopic(t *testing.T) {
	client := network.NewNSQClient(nsqServer.HTTPAddr())
	err := client.Enqueue("invalid!topic", "owner-0001/file-0001")
	assert.NotNil(t, err)
}

func TestNSQEnqueueNoServer(t *testing.T) {
	client := network.NewNSQClient("http://127.0.0.1:1")
	err := client.Enqueue(constants.TopicVerification, "owner-0001/file-0001")
	assert.NotNil(t, err)
}
