package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/select/operating_mode/set"
	r := selectCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "operating_mode", "select id extract")
}

func TestSelectCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/select/operating_mode/state"
	r := selectCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestNotifyTopicFallback(t *testing.T) {

	assert := assert.New(t)

	c := &MQTTClient{}
	c.cfg.BaseTopic = "sunledger"
	assert.Equal("sunledger/notify", c.NotifyTopic())

	c.cfg.NotifyTopic = "custom/notify"
	assert.Equal("custom/notify", c.NotifyTopic())
}
