package orders

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/speps/go-hashids/v2"
)

// OrderNumberGenerator issues short, non-guessable public order numbers.
// The hashid salt keeps sequential inputs from producing guessable codes;
// the random component keeps two orders in the same second distinct.
type OrderNumberGenerator struct {
	h *hashids.HashID
}

func NewOrderNumberGenerator(salt string) (*OrderNumberGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 10
	data.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &OrderNumberGenerator{h: h}, nil
}

func (g *OrderNumberGenerator) Generate() string {
	code, err := g.h.EncodeInt64([]int64{
		time.Now().UnixMilli(),
		rand.Int63n(1 << 31),
	})
	if err != nil {
		// EncodeInt64 only fails on negative inputs, which cannot happen here.
		code = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return "SOUK-" + strings.ToUpper(code)
}
