// internal/entry/category.go
//
// Category catalogue. Keys are lowercase English identifiers; the Chinese
// display names used by the client are accepted as aliases.

package entry

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Random is the sentinel category resolved to a concrete one at round start.
const Random = "random"

// Categories lists the concrete categories a round can be drawn from.
var Categories = []string{
	"nature",
	"astronomy",
	"geography",
	"anime",
	"movie",
	"game",
	"sports",
	"history",
	"acgn",
}

var aliases = map[string]string{
	"自然":   "nature",
	"天文":   "astronomy",
	"地理":   "geography",
	"动漫":   "anime",
	"影视":   "movie",
	"游戏":   "game",
	"体育":   "sports",
	"历史":   "history",
	"随机":   Random,
	"acgn": "acgn",
}

var displayNames = map[string]string{
	"nature":    "自然",
	"astronomy": "天文",
	"geography": "地理",
	"anime":     "动漫",
	"movie":     "影视",
	"game":      "游戏",
	"sports":    "体育",
	"history":   "历史",
	"acgn":      "ACGN",
	Random:      "随机",
}

// Normalize maps a category name or alias to its key. Unknown names are
// lowercased and returned as-is so exclusion buckets stay stable.
func Normalize(category string) string {
	s := strings.ToLower(strings.TrimSpace(category))
	if k, ok := aliases[s]; ok {
		return k
	}
	return s
}

// IsConcrete reports whether key names one of Categories.
func IsConcrete(key string) bool {
	for _, c := range Categories {
		if c == key {
			return true
		}
	}
	return false
}

// IsKnown reports whether key is a concrete category or Random.
func IsKnown(key string) bool {
	return key == Random || IsConcrete(key)
}

// DisplayName returns the client-facing name for key.
func DisplayName(key string) string {
	if n, ok := displayNames[key]; ok {
		return n
	}
	return key
}

// Draw picks one concrete category uniformly using intn(n) ∈ [0,n).
// A nil intn uses crypto/rand.
func Draw(intn func(n int) int) string {
	if intn == nil {
		intn = cryptoIntn
	}
	return Categories[intn(len(Categories))]
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
