package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ivr-voting/models"
)

// Ballot is one recorded vote as the backend keeps it.
type Ballot struct {
	ElectionID string             `json:"election_id"`
	VoterID    string             `json:"voter_id"`
	Receipt    models.VoteReceipt `json:"receipt"`
}

// BallotBox holds the latest ballot per voter of one election.
type BallotBox struct {
	Ballots map[string]*Ballot `json:"ballots"`
}

// JSONStore keeps one ballot box file per election. A voter recording again
// replaces their previous ballot.
type JSONStore struct {
	basePath string
	mu       sync.RWMutex
	boxes    map[string]*BallotBox
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}
	return &JSONStore{
		basePath: basePath,
		boxes:    make(map[string]*BallotBox),
	}, nil
}

// SaveBallot stores b and rewrites its election's file.
func (s *JSONStore) SaveBallot(b *Ballot) error {
	if b.ElectionID == "" || b.VoterID == "" {
		return fmt.Errorf("ballot needs an election and a voter id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	box, err := s.box(b.ElectionID)
	if err != nil {
		return err
	}
	box.Ballots[b.VoterID] = b
	return s.saveBoxToFile(b.ElectionID, box)
}

// LoadBallot returns the ballot of a voter, or nil.
func (s *JSONStore) LoadBallot(electionID, voterID string) (*Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	box, err := s.box(electionID)
	if err != nil {
		return nil, err
	}
	b, ok := box.Ballots[voterID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// ListBallots returns an election's ballots ordered by voter id.
func (s *JSONStore) ListBallots(electionID string) ([]Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	box, err := s.box(electionID)
	if err != nil {
		return nil, err
	}
	ballots := make([]Ballot, 0, len(box.Ballots))
	for _, b := range box.Ballots {
		ballots = append(ballots, *b)
	}
	sort.Slice(ballots, func(i, j int) bool { return ballots[i].VoterID < ballots[j].VoterID })
	return ballots, nil
}

// box returns the cached ballot box, loading it on first use. s.mu is held.
func (s *JSONStore) box(electionID string) (*BallotBox, error) {
	if box, ok := s.boxes[electionID]; ok {
		return box, nil
	}
	box, err := s.loadBoxFromFile(electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ballot box %s: %v", electionID, err)
	}
	s.boxes[electionID] = box
	return box, nil
}

func (s *JSONStore) path(electionID string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("election_%s.json", filepath.Base(electionID)))
}

func (s *JSONStore) loadBoxFromFile(electionID string) (*BallotBox, error) {
	data, err := os.ReadFile(s.path(electionID))
	if err != nil {
		if os.IsNotExist(err) {
			return &BallotBox{Ballots: make(map[string]*Ballot)}, nil
		}
		return nil, err
	}

	var box BallotBox
	if err := json.Unmarshal(data, &box); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ballot box: %v", err)
	}
	if box.Ballots == nil {
		box.Ballots = make(map[string]*Ballot)
	}
	return &box, nil
}

func (s *JSONStore) saveBoxToFile(electionID string, box *BallotBox) error {
	path := s.path(electionID)

	data, err := json.MarshalIndent(box, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ballot box: %v", err)
	}

	// Write to temporary file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ballot box file: %v", err)
	}

	// Atomic rename to ensure consistency
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save ballot box file: %v", err)
	}
	return nil
}
