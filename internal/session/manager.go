// Package session manages dataset read sessions. Each read scans the data
// directory fresh, so a session always reflects the files on disk when it
// started.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tms-reader/backend/internal/models"
	"github.com/tms-reader/backend/internal/reader"
	"github.com/tms-reader/backend/internal/store"
)

// MaxSessions limits concurrent sessions to bound temp-file usage.
const MaxSessions = 10

// SessionKeepAliveWindow is how long recently accessed sessions survive
// cleanup regardless of age.
const SessionKeepAliveWindow = 5 * time.Minute

// Manager handles active read sessions.
type Manager struct {
	sessions map[string]*State
	mu       sync.RWMutex
	dataDir  string
	format   reader.Format
	tempDir  string
}

// State holds the session metadata and the DuckDB-backed result table.
type State struct {
	Session      *models.ReadSession
	Store        *store.MeasurementStore
	LastAccessed time.Time
}

// NewManager creates a read session manager for a dataset directory.
func NewManager(dataDir string, format reader.Format, tempDir string) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		dataDir:  dataDir,
		format:   format,
		tempDir:  tempDir,
	}
}

// StartRead begins reading the dataset in the background.
func (m *Manager) StartRead() (*models.ReadSession, error) {
	m.cleanupIfAtCapacity()

	sessionID := uuid.New().String()

	session := models.NewReadSession(sessionID)
	session.Status = models.ReadStatusReading

	m.mu.Lock()
	m.sessions[sessionID] = &State{
		Session:      session,
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.runRead(sessionID)

	return session, nil
}

func (m *Manager) runRead(sessionID string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Read %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.failSession(sessionID, fmt.Sprintf("read panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Read %s] Starting read of %s\n", sessionID[:8], m.dataDir)

	rd, err := reader.New(m.dataDir, m.format)
	if err != nil {
		fmt.Printf("[Read %s] ERROR: %v\n", sessionID[:8], err)
		m.failSession(sessionID, fmt.Sprintf("scanning dataset: %v", err))
		return
	}

	m.setProgress(sessionID, 10, rd.FileCount())
	fmt.Printf("[Read %s] Discovered %d data files\n", sessionID[:8], rd.FileCount())

	result, err := rd.Read()
	if err != nil {
		fmt.Printf("[Read %s] ERROR: read failed: %v\n", sessionID[:8], err)
		m.failSession(sessionID, fmt.Sprintf("read failed: %v", err))
		return
	}

	m.setProgress(sessionID, 60, rd.FileCount())

	ms, err := store.NewMeasurementStore(m.tempDir, sessionID)
	if err != nil {
		fmt.Printf("[Read %s] ERROR: failed to create store: %v\n", sessionID[:8], err)
		m.failSession(sessionID, fmt.Sprintf("failed to create storage: %v", err))
		return
	}

	for i := range result.Records {
		ms.Append(result.Records[i])
	}
	if err := ms.Finalize(); err != nil {
		ms.Close()
		fmt.Printf("[Read %s] ERROR: finalize failed: %v\n", sessionID[:8], err)
		m.failSession(sessionID, fmt.Sprintf("storing records: %v", err))
		return
	}
	if err := ms.LastError(); err != nil {
		ms.Close()
		m.failSession(sessionID, fmt.Sprintf("storing records: %v", err))
		return
	}

	elapsed := time.Since(start).Milliseconds()
	fmt.Printf("[Read %s] Read complete: %d records, %d skipped lines, %d files in %dms\n",
		sessionID[:8], len(result.Records), len(result.Skipped), result.FilesRead, elapsed)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		ms.Close()
		return
	}

	state.Store = ms
	state.Session.Status = models.ReadStatusComplete
	state.Session.Progress = 100
	state.Session.FileCount = result.FilesRead
	state.Session.RecordCount = len(result.Records)
	state.Session.SkippedCount = len(result.Skipped)
	state.Session.ProcessingTimeMs = elapsed
	state.Session.Errors = result.Skipped
	state.Session.Notes = result.Notes

	if tr := ms.TimeRange(); tr != nil {
		state.Session.StartTime = tr.Start.UnixMilli()
		state.Session.EndTime = tr.End.UnixMilli()
	}
}

func (m *Manager) setProgress(sessionID string, progress float64, fileCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = progress
		state.Session.FileCount = fileCount
	}
}

func (m *Manager) failSession(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.ReadStatusError
	state.Session.Errors = append(state.Session.Errors, models.RowError{Reason: reason})
}

// GetSession returns a copy of the session metadata.
func (m *Manager) GetSession(sessionID string) (models.ReadSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return models.ReadSession{}, false
	}
	state.LastAccessed = time.Now()
	return *state.Session, true
}

// GetStore returns the session's result table, or false if the session does
// not exist or has not completed.
func (m *Manager) GetStore(sessionID string) (*store.MeasurementStore, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok || state.Store == nil {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Store, true
}

// cleanupIfAtCapacity removes finished sessions when at the session limit.
func (m *Manager) cleanupIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	deleted := 0
	for id, state := range m.sessions {
		if deleted >= toFree {
			break
		}
		if state.Session.Status == models.ReadStatusComplete ||
			state.Session.Status == models.ReadStatusError {
			if state.Store != nil {
				state.Store.Close()
			}
			delete(m.sessions, id)
			deleted++
			fmt.Printf("[Manager] Cleaned up session %s to free capacity\n", id[:8])
		}
	}
}

// CleanupOldSessions removes sessions older than maxAge, keeping sessions
// accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	cutoff := time.Now().Add(-maxAge)

	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.After(cutoff) {
			continue
		}
		if state.Session.Status == models.ReadStatusReading ||
			state.Session.Status == models.ReadStatusPending {
			continue
		}
		if state.Store != nil {
			state.Store.Close()
		}
		delete(m.sessions, id)
		fmt.Printf("[Manager] Cleaned up expired session %s\n", id[:8])
	}
}
