package uid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type UUIDGeneratorOptions struct {
	Version     string `cfg:"version" def:"v4" validate:"oneof=v1 v4 v6 v7"`
	WithHyphens bool   `cfg:"withHyphens"`
}

// UUIDGenerator 基于 google/uuid 的生成器
type UUIDGenerator struct {
	newUUID     func() (uuid.UUID, error)
	withHyphens bool
}

func NewUUIDGeneratorWithOptions(options *UUIDGeneratorOptions) (*UUIDGenerator, error) {
	if options == nil {
		options = &UUIDGeneratorOptions{}
	}

	g := &UUIDGenerator{withHyphens: options.WithHyphens}
	switch options.Version {
	case "", "v4":
		g.newUUID = uuid.NewRandom
	case "v1":
		g.newUUID = uuid.NewUUID
	case "v6":
		g.newUUID = uuid.NewV6
	case "v7":
		g.newUUID = uuid.NewV7
	default:
		return nil, errors.Errorf("unsupported uuid version %q", options.Version)
	}
	return g, nil
}

// Generate 生成失败时退回 v4
func (g *UUIDGenerator) Generate() string {
	u, err := g.newUUID()
	if err != nil {
		u = uuid.New()
	}
	if g.withHyphens {
		return u.String()
	}
	return hex.EncodeToString(u[:])
}
