// Package units converts fee amounts between wei and gwei.
//
// Wei amounts travel as decimal-string integers so that values above 2^53
// survive the round trip; gwei amounts are float64 because every estimator
// works in human scale.
package units

import (
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// gweiExp is the decimal exponent between wei and gwei.
const gweiExp = 9

var gweiPerWei = decimal.NewFromInt(params.GWei)

// ParseWei parses a decimal wei amount and checks it fits in 256 bits.
func ParseWei(wei string) (*uint256.Int, error) {
	wei = strings.TrimSpace(wei)
	if wei == "" {
		return nil, errors.New("wei amount is empty")
	}
	v, err := uint256.FromDecimal(wei)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid wei amount %q", wei)
	}
	return v, nil
}

// WeiFromBig renders a node-supplied amount as a decimal wei string.
func WeiFromBig(v *big.Int) (string, error) {
	if v == nil {
		return "", errors.New("wei amount is nil")
	}
	if v.Sign() < 0 {
		return "", errors.Errorf("wei amount %s is negative", v)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return "", errors.Errorf("wei amount %s overflows 256 bits", v)
	}
	return v.String(), nil
}

// WeiToGwei converts a decimal wei string to gwei.
func WeiToGwei(wei string) (float64, error) {
	if _, err := ParseWei(wei); err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(wei))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid wei amount %q", wei)
	}
	gwei, _ := d.Shift(-gweiExp).Float64()
	return gwei, nil
}

// GweiToWei converts gwei to a decimal wei string, rounded to the nearest wei.
func GweiToWei(gwei float64) (string, error) {
	if math.IsNaN(gwei) || math.IsInf(gwei, 0) {
		return "", errors.Errorf("gwei amount %v is not finite", gwei)
	}
	if gwei < 0 {
		return "", errors.Errorf("gwei amount %v is negative", gwei)
	}
	return decimal.NewFromFloat(gwei).Mul(gweiPerWei).Round(0).String(), nil
}

// MultiplyWei scales a wei amount by f, keeping full decimal precision until
// the final rounding to whole wei.
func MultiplyWei(wei string, f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.Errorf("multiplier %v is not finite", f)
	}
	if f < 0 {
		return "", errors.Errorf("multiplier %v is negative", f)
	}
	if _, err := ParseWei(wei); err != nil {
		return "", err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(wei))
	if err != nil {
		return "", errors.Wrapf(err, "invalid wei amount %q", wei)
	}
	return d.Mul(decimal.NewFromFloat(f)).Round(0).String(), nil
}
