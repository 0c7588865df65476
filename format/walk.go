package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hengadev/envmeta"
	"github.com/hengadev/envmeta/internal/crypto"
)

// walker applies the envelope's per-field decision across a whole document
// tree. The decision is taken at every mapping key: a key ruled plaintext
// exempts its entire subtree, and sequence elements inherit the enclosing
// key's decision. Maps are visited in sorted key order so the integrity code
// is deterministic.
type walker struct {
	meta    *envmeta.Metadata
	cipher  *crypto.ValueCipher
	dataKey []byte
	mac     *crypto.MAC
}

func newWalker(meta *envmeta.Metadata, dataKey []byte) *walker {
	return &walker{
		meta:    meta,
		cipher:  crypto.NewValueCipher(),
		dataKey: dataKey,
		mac:     crypto.NewMAC(dataKey),
	}
}

func (w *walker) encrypt(node any, path []string, encrypting bool) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for _, key := range sortedKeys(v) {
			childEncrypting := encrypting && w.meta.ShouldEncrypt(key)
			child, err := w.encrypt(v[key], append(path, key), childEncrypting)
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			child, err := w.encrypt(item, append(path, strconv.Itoa(i)), encrypting)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		if err := w.mac.Add(v); err != nil {
			return nil, err
		}
		if !encrypting {
			return v, nil
		}
		return w.cipher.EncryptValue(w.dataKey, v, strings.Join(path, "."))
	}
}

func (w *walker) decrypt(node any, path []string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for _, key := range sortedKeys(v) {
			child, err := w.decrypt(v[key], append(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			child, err := w.decrypt(item, append(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case string:
		if !crypto.IsEncryptedValue(v) {
			if err := w.mac.Add(v); err != nil {
				return nil, err
			}
			return v, nil
		}
		plain, err := w.cipher.DecryptValue(w.dataKey, v, strings.Join(path, "."))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		if err := w.mac.Add(plain); err != nil {
			return nil, err
		}
		return plain, nil
	default:
		if err := w.mac.Add(v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
