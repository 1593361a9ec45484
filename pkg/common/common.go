package common

import (
	"math/rand"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	idNode *snowflake.Node
	idOnce sync.Once
)

// UUIDint64 returns a cluster-unique, roughly time-ordered int64 id.
func UUIDint64() int64 {
	idOnce.Do(func() {
		var err error
		idNode, err = snowflake.NewNode(rand.Int63n(1024))
		if err != nil {
			idNode, _ = snowflake.NewNode(1)
		}
	})
	return idNode.Generate().Int64()
}
