package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheTagInvalidation(t *testing.T) {
	c := GetCache()

	c.Set("items:list:page:1", "page1", time.Minute, "item:lists")
	c.Set("items:list:page:2", "page2", time.Minute, "item:lists")
	c.Set("item:detail:abc", "detail", time.Minute, "item:abc")

	assert.Equal(t, "page1", c.Get("items:list:page:1"))

	// tag 失效只影响挂在该 tag 下的键
	c.InvalidateTag("item:lists")
	assert.Nil(t, c.Get("items:list:page:1"))
	assert.Nil(t, c.Get("items:list:page:2"))
	assert.Equal(t, "detail", c.Get("item:detail:abc"))

	c.Delete("item:detail:abc")
	assert.Nil(t, c.Get("item:detail:abc"))
}

func TestCacheExpiry(t *testing.T) {
	c := GetCache()
	c.Set("ephemeral", 42, -time.Second)
	assert.Nil(t, c.Get("ephemeral"), "expired entries read as miss")
}
