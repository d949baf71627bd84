package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New 返回按时间排序的 ULID 字符串，同一毫秒内单调递增。
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt 以指定时间生成 ULID。
func NewAt(ts time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(ts), mono)
	if err != nil {
		// 仅在熵源失败或单调序列溢出时出现
		panic(err)
	}
	return id.String()
}
