package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Provider is the external identity provider contract. The backend only
// provisions identities on user creation and deletes them after a local
// user deletion has committed; everything else about the provider is
// opaque.
type Provider interface {
	CreateIdentity(email, password string) (string, error)
	DeleteIdentity(uid string) error
}

// RESTProvider talks to an external identity admin API over HTTP.
type RESTProvider struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewRESTProvider creates a provider backed by the admin API at baseURL.
func NewRESTProvider(baseURL, apiToken string) *RESTProvider {
	return &RESTProvider{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type createIdentityRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createIdentityResponse struct {
	UID string `json:"uid"`
}

// CreateIdentity provisions a new identity and returns its uid.
func (p *RESTProvider) CreateIdentity(email, password string) (string, error) {
	body, err := json.Marshal(createIdentityRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/identities", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var out createIdentityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.UID == "" {
		return "", fmt.Errorf("identity provider returned an empty uid")
	}
	return out.UID, nil
}

// DeleteIdentity removes an identity by uid.
func (p *RESTProvider) DeleteIdentity(uid string) error {
	req, err := http.NewRequest(http.MethodDelete, p.baseURL+"/identities/"+url.PathEscape(uid), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
	return nil
}

// LocalProvider is an in-process provider for development and tests. It
// mints uuid-based uids and remembers which identities were deleted.
type LocalProvider struct {
	mu      sync.Mutex
	created map[string]string // uid -> email
	Deleted []string
	// FailDeletes makes DeleteIdentity return an error, for exercising
	// the best-effort post-commit path.
	FailDeletes bool
}

// NewLocalProvider creates an empty in-process provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{created: make(map[string]string)}
}

// CreateIdentity mints a new uid for the email.
func (p *LocalProvider) CreateIdentity(email, password string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	uid := uuid.NewString()
	p.created[uid] = email
	return uid, nil
}

// DeleteIdentity records the deletion.
func (p *LocalProvider) DeleteIdentity(uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDeletes {
		return fmt.Errorf("identity provider unavailable")
	}
	delete(p.created, uid)
	p.Deleted = append(p.Deleted, uid)
	return nil
}
