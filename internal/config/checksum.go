package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ChecksumAddress returns the EIP-55 form of a hex address.
func ChecksumAddress(addr string) (string, error) {
	a, err := stripHex(addr)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(a)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hexhash := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, ch := range out {
		// буква в верхний регистр, если соответствующий ниббл хэша >= 8
		if ch >= 'a' && ch <= 'f' && hexhash[i] >= '8' {
			out[i] = ch - 'a' + 'A'
		}
	}
	return "0x" + string(out), nil
}

// ParseAddress accepts all-lower or all-upper hex as is; mixed case must carry a valid checksum.
func ParseAddress(addr string) (common.Address, error) {
	a, err := stripHex(addr)
	if err != nil {
		return common.Address{}, err
	}
	if a != strings.ToLower(a) && a != strings.ToUpper(a) {
		cs, _ := ChecksumAddress(a)
		if cs[2:] != a {
			return common.Address{}, fmt.Errorf("bad checksum for %s (want %s)", addr, cs)
		}
	}
	out := common.HexToAddress(a)
	if out == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address")
	}
	return out, nil
}

func stripHex(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	if a == "" {
		return "", fmt.Errorf("empty address")
	}
	if strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "0X") {
		a = a[2:]
	}
	if len(a) != 40 {
		return "", fmt.Errorf("bad hex length: %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		return "", fmt.Errorf("not hex: %w", err)
	}
	return a, nil
}
