// Package jsonl stores trade logs as one JSON object per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/storage"
)

// FileName is the trade log file inside the log directory.
const FileName = "trades.jsonl"

const maxLineSize = 1 << 20

// TradeLogStore implements storage.TradeLogStore on an append-only file.
type TradeLogStore struct {
	mu        sync.Mutex
	path      string
	ids       map[string]struct{}
	truncated int64
}

// NewTradeLogStore opens (creating if needed) dir/trades.jsonl.
func NewTradeLogStore(dir string) (*TradeLogStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	s := &TradeLogStore{
		path: filepath.Join(dir, FileName),
		ids:  make(map[string]struct{}),
	}

	existing, err := s.repair()
	if err != nil {
		return nil, err
	}
	for _, l := range existing {
		s.ids[l.ID] = struct{}{}
	}
	return s, nil
}

// repair loads the existing records and cuts a torn final line left by an
// interrupted Append, so the next record starts on a fresh line.
func (s *TradeLogStore) repair() ([]*domain.TradeLog, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	res, err := decode(f)
	if err != nil {
		return nil, err
	}
	if res.size > res.end {
		if err := f.Truncate(res.end); err != nil {
			return nil, fmt.Errorf("truncate torn trade log line: %w", err)
		}
		s.truncated = res.size - res.end
	}
	return res.records, nil
}

// Truncated reports how many bytes of a torn final line were cut on open.
func (s *TradeLogStore) Truncated() int64 {
	return s.truncated
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Path returns the backing file path.
func (s *TradeLogStore) Path() string {
	return s.path
}

// Append writes l as one line. Returns ErrDuplicateKey if id exists.
func (s *TradeLogStore) Append(_ context.Context, l *domain.TradeLog) error {
	if err := storage.ValidateTradeLog(l); err != nil {
		return err
	}

	line, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal trade log: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[l.ID]; exists {
		return storage.ErrDuplicateKey
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write trade log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trade log: %w", err)
	}

	s.ids[l.ID] = struct{}{}
	return nil
}

// History returns every record in file order. A missing file is an empty history.
func (s *TradeLogStore) History(_ context.Context) ([]*domain.TradeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *TradeLogStore) read() ([]*domain.TradeLog, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a JSONL stream. Blank lines are skipped. An unterminated or
// unparseable final line is treated as a torn write and dropped; a bad line
// followed by more records is an error.
func Decode(r io.Reader) ([]*domain.TradeLog, error) {
	res, err := decode(r)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

type decoded struct {
	records []*domain.TradeLog
	end     int64 // offset just past the last complete line
	size    int64
}

func decode(r io.Reader) (decoded, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		res    decoded
		torn   error
		lineNo int
	)
	for {
		line, rerr := br.ReadBytes('\n')
		if rerr != nil && rerr != io.EOF {
			return decoded{}, fmt.Errorf("read trade log: %w", rerr)
		}
		if len(line) > maxLineSize {
			return decoded{}, fmt.Errorf("trade log line %d: exceeds %d bytes", lineNo+1, maxLineSize)
		}

		if len(line) > 0 {
			lineNo++
			res.size += int64(len(line))
			body := bytes.TrimSpace(line)

			switch {
			case len(body) == 0:
				if torn == nil {
					res.end = res.size
				}
			case torn != nil:
				return decoded{}, torn
			default:
				var l domain.TradeLog
				err := json.Unmarshal(body, &l)
				if err == nil && line[len(line)-1] != '\n' {
					err = io.ErrUnexpectedEOF
				}
				if err != nil {
					torn = fmt.Errorf("trade log line %d: %w", lineNo, err)
					break
				}
				res.records = append(res.records, &l)
				res.end = res.size
			}
		}

		if rerr == io.EOF {
			return res, nil
		}
	}
}
