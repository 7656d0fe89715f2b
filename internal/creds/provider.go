package creds

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fernet/fernet-go"
)

// FernetKeyVar — переменная окружения с симметричным ключом для ENC(...).
const FernetKeyVar = "SOCIAL_MEDIA_FERNET_KEY"

// ErrMissingFernetKey возвращается, когда встречено ENC(...)-значение,
// а ключ расшифровки не задан.
var ErrMissingFernetKey = errors.New("creds: ENC value present but " + FernetKeyVar + " is not set")

// Provider раздает токены платформ по кругу. Для платформы P берется
// значение P_TOKENS (приоритет) либо P_TOKEN, разрезанное по запятым.
// Значения вида ENC(<b64>) расшифровываются fernet-ключом.
type Provider struct {
	env map[string]string
	key *fernet.Key

	mu      sync.Mutex
	cursors map[string]int
}

func NewProvider(env map[string]string) (*Provider, error) {
	p := &Provider{
		env:     env,
		cursors: make(map[string]int),
	}
	if raw, ok := env[FernetKeyVar]; ok && raw != "" {
		key, err := fernet.DecodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("creds: decode %s: %w", FernetKeyVar, err)
		}
		p.key = key
	}
	return p, nil
}

// Tokens возвращает все токены платформы в порядке конфигурации.
// Отсутствие токенов — не ошибка: адаптеры работают в no-auth режиме.
func (p *Provider) Tokens(platform string) ([]string, error) {
	upper := strings.ToUpper(platform)
	raw, ok := p.env[upper+"_TOKENS"]
	if !ok || raw == "" {
		raw = p.env[upper+"_TOKEN"]
	}
	if raw == "" {
		return nil, nil
	}

	var tokens []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		token, err := p.decrypt(part)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// NextToken возвращает очередной токен платформы по round-robin.
// Второй результат false — токенов нет вовсе.
func (p *Provider) NextToken(platform string) (string, bool, error) {
	tokens, err := p.Tokens(platform)
	if err != nil {
		return "", false, err
	}
	if len(tokens) == 0 {
		return "", false, nil
	}

	p.mu.Lock()
	idx := p.cursors[platform]
	p.cursors[platform] = (idx + 1) % len(tokens)
	p.mu.Unlock()

	return tokens[idx%len(tokens)], true, nil
}

func (p *Provider) decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, "ENC(") || !strings.HasSuffix(value, ")") {
		return value, nil
	}
	if p.key == nil {
		return "", ErrMissingFernetKey
	}

	inner := value[len("ENC(") : len(value)-1]
	token, err := base64.StdEncoding.DecodeString(inner)
	if err != nil {
		return "", fmt.Errorf("creds: decode ENC payload: %w", err)
	}

	plain := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{p.key})
	if plain == nil {
		return "", errors.New("creds: fernet decryption failed")
	}
	return string(plain), nil
}
