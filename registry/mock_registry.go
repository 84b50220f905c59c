package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"ivr-voting/encryption"
	"ivr-voting/models"
	"ivr-voting/storage"
)

// Route names accepted by MockBackend.SetStatus.
const (
	RouteLogin    = "login"
	RouteElection = "election"
	RouteVote     = "vote"
)

// MockVoter is a voter known to MockBackend.
type MockVoter struct {
	UserID              string                 `json:"user_id"`
	PIN                 string                 `json:"pin"`
	VotePermissionToken string                 `json:"vote_permission_token,omitempty"`
	Children            []models.ChildElection `json:"children,omitempty"`
}

// MockElection is an election served by MockBackend.
type MockElection struct {
	ID         string                    `json:"id"`
	PublicKeys []models.PublicKeyStrings `json:"public_keys"`
}

// MockConfig describes fixtures and the credential field names.
type MockConfig struct {
	FixturesPath string `json:"fixtures_path"`
	UserIDKey    string `json:"user_id_key"`
	VoterPINKey  string `json:"voter_pin_key"`
}

// RecordedCall is one request seen by MockBackend.
type RecordedCall struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// MockBackend is an in-memory election backend served over HTTP. It checks
// the hash and the proofs of every recorded vote like the real backend does.
type MockBackend struct {
	mu        sync.RWMutex
	config    MockConfig
	voters    map[string]*MockVoter
	elections map[string]*MockElection
	votes     map[string]models.VoteReceipt // key: election/voter
	status    map[string]int
	calls     []RecordedCall
	router    *mux.Router
	store     *storage.JSONStore
}

// NewMockBackend creates an empty backend.
func NewMockBackend(config MockConfig) *MockBackend {
	if config.UserIDKey == "" {
		config.UserIDKey = "user_id"
	}
	if config.VoterPINKey == "" {
		config.VoterPINKey = "pin"
	}
	m := &MockBackend{
		config:    config,
		voters:    make(map[string]*MockVoter),
		elections: make(map[string]*MockElection),
		votes:     make(map[string]models.VoteReceipt),
		status:    make(map[string]int),
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/auth-event/{election_id}/authenticate", m.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/election/{election_id}", m.handleGetElection).Methods(http.MethodGet)
	r.HandleFunc("/api/election/{election_id}/voter/{voter_id}", m.handleRecordVote).Methods(http.MethodPost)
	m.router = r
	return m
}

// WithStore persists every accepted ballot to store.
func (m *MockBackend) WithStore(store *storage.JSONStore) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
	return m
}

// LoadFixtures reads voters and elections from the configured JSON file.
func (m *MockBackend) LoadFixtures() error {
	data, err := os.ReadFile(m.config.FixturesPath)
	if err != nil {
		return fmt.Errorf("failed to read fixtures file: %v", err)
	}

	var fixtures struct {
		Voters    []*MockVoter    `json:"voters"`
		Elections []*MockElection `json:"elections"`
	}
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("failed to unmarshal fixtures: %v", err)
	}

	for _, v := range fixtures.Voters {
		if err := m.AddVoter(v); err != nil {
			return err
		}
	}
	for _, e := range fixtures.Elections {
		if e.ID == "" {
			return fmt.Errorf("election id is required")
		}
		m.mu.Lock()
		m.elections[e.ID] = e
		m.mu.Unlock()
	}
	return nil
}

// AddVoter registers a voter.
func (m *MockBackend) AddVoter(v *MockVoter) error {
	if v.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voters[v.UserID] = v
	return nil
}

// AddElection generates a fresh key pair for an election and serves its
// public key. The private key is returned for tallying in tests.
func (m *MockBackend) AddElection(id string) (*encryption.PrivateKey, error) {
	sk, err := encryption.GenerateKey(encryption.DefaultGroup(), nil)
	if err != nil {
		return nil, err
	}
	m.SetElection(id, []models.PublicKeyStrings{sk.PublicKey.Strings()})
	return sk, nil
}

// SetElection serves arbitrary public keys for an election.
func (m *MockBackend) SetElection(id string, pks []models.PublicKeyStrings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elections[id] = &MockElection{ID: id, PublicKeys: pks}
}

// SetStatus forces a route to answer with status; 0 restores normal handling.
func (m *MockBackend) SetStatus(route string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[route] = status
}

// Calls returns every request received so far.
func (m *MockBackend) Calls() []RecordedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]RecordedCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Vote returns the receipt recorded for a voter, if any.
func (m *MockBackend) Vote(electionID, voterID string) (models.VoteReceipt, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.votes[electionID+"/"+voterID]
	return v, ok
}

func (m *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	m.mu.Unlock()

	m.router.ServeHTTP(w, r)
}

func (m *MockBackend) forcedStatus(route string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[route]
}

func (m *MockBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s := m.forcedStatus(RouteLogin); s != 0 {
		http.Error(w, http.StatusText(s), s)
		return
	}

	var creds map[string]string
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	voter, ok := m.voters[creds[m.config.UserIDKey]]
	m.mu.RUnlock()
	if !ok || voter.PIN != creds[m.config.VoterPINKey] {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	resp := map[string]interface{}{"status": "ok"}
	if voter.VotePermissionToken != "" {
		resp[models.VotePermissionTokenField] = voter.VotePermissionToken
	}
	if len(voter.Children) > 0 {
		resp[models.VoteChildrenInfoField] = voter.Children
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *MockBackend) handleGetElection(w http.ResponseWriter, r *http.Request) {
	if s := m.forcedStatus(RouteElection); s != 0 {
		http.Error(w, http.StatusText(s), s)
		return
	}

	id := mux.Vars(r)["election_id"]
	m.mu.RLock()
	election, ok := m.elections[id]
	m.mu.RUnlock()
	if !ok {
		http.Error(w, "election not found", http.StatusNotFound)
		return
	}

	pks, err := json.Marshal(election.PublicKeys)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  200,
		"payload": map[string]interface{}{"id": id, "pks": string(pks)},
	})
}

func (m *MockBackend) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	if s := m.forcedStatus(RouteVote); s != 0 {
		http.Error(w, http.StatusText(s), s)
		return
	}

	vars := mux.Vars(r)
	electionID, voterID := vars["election_id"], vars["voter_id"]

	token := r.Header.Get("Authorization")
	payload := token[strings.LastIndex(token, "/")+1:]
	if token == "" || !strings.HasPrefix(payload, voterID+":") {
		http.Error(w, "invalid authorization", http.StatusUnauthorized)
		return
	}

	var receipt models.VoteReceipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !encryption.VerifyReceipt(&receipt) {
		http.Error(w, "vote hash mismatch", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	election, ok := m.elections[electionID]
	m.mu.RUnlock()
	if !ok || len(election.PublicKeys) != 1 {
		http.Error(w, "election not found", http.StatusNotFound)
		return
	}
	pk, err := encryption.PublicKeyFromStrings(election.PublicKeys[0])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var ballot models.EncryptedBallot
	if err := json.Unmarshal([]byte(receipt.Vote), &ballot); err != nil {
		http.Error(w, "invalid vote", http.StatusBadRequest)
		return
	}
	if err := encryption.NewCryptoService().VerifyBallot(pk, &ballot); err != nil {
		http.Error(w, "invalid proof", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.votes[electionID+"/"+voterID] = receipt
	store := m.store
	m.mu.Unlock()
	if store != nil {
		if err := store.SaveBallot(&storage.Ballot{ElectionID: electionID, VoterID: voterID, Receipt: receipt}); err != nil {
			http.Error(w, "failed to store ballot", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
