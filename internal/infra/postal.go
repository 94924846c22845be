package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidPostalCode = errors.New("postal code must have 8 digits")
	ErrPostalNotFound    = errors.New("postal code not found")
)

// Address is the subset of the lookup answer the UI shows
type Address struct {
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// PostalClient resolves Brazilian postal codes through the public lookup
// service, behind a circuit breaker.
type PostalClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewPostalClient(baseURL string, cb *CircuitBreaker) *PostalClient {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &PostalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         cb,
	}
}

// NormalizePostalCode strips non-digits and checks the length
func NormalizePostalCode(code string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
	if len(digits) != 8 {
		return "", ErrInvalidPostalCode
	}
	return digits, nil
}

func (c *PostalClient) Lookup(ctx context.Context, code string) (*Address, error) {
	digits, err := NormalizePostalCode(code)
	if err != nil {
		return nil, err
	}

	var addr *Address
	err = c.cb.Execute(func() error {
		var ferr error
		addr, ferr = c.fetch(ctx, digits)
		return ferr
	}, func(err error) bool { return !errors.Is(err, ErrPostalNotFound) })
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (c *PostalClient) fetch(ctx context.Context, digits string) (*Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, digits), nil)
	if err != nil {
		return nil, fmt.Errorf("postal: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postal: service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, ErrPostalNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postal: service returned %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("postal: decode response: %w", err)
	}
	if body.Erro != nil && body.Erro != false && body.Erro != "false" {
		return nil, ErrPostalNotFound
	}
	return &Address{
		PostalCode: body.CEP,
		Street:     body.Logradouro,
		District:   body.Bairro,
		City:       body.Localidade,
		State:      body.UF,
	}, nil
}
