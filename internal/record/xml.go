package record

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// XMLRecorder writes one human-readable XML document per finished match into
// a directory and enumerates them newest-first by modification time.
type XMLRecorder struct {
	dir string
}

// noWinner is the literal stored in the winner element when nobody won.
const noWinner = "None"

func NewXMLRecorder(dir string) (*XMLRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results dir: %w", err)
	}
	return &XMLRecorder{dir: dir}, nil
}

type xmlMatch struct {
	XMLName    xml.Name       `xml:"game_result"`
	GameID     string         `xml:"game_id"`
	StartTime  string         `xml:"start_time"`
	EndTime    string         `xml:"end_time"`
	SecretCode string         `xml:"secret_code"`
	Winner     string         `xml:"winner"`
	Players    []PlayerResult `xml:"players>player"`
}

// Record writes the match document atomically: a temp file in the same
// directory is renamed into place, so a crash leaves either the whole record
// or nothing.
func (r *XMLRecorder) Record(_ context.Context, m Match) (string, error) {
	doc := xmlMatch{
		GameID:     m.GameID,
		StartTime:  m.StartTime.Format(time.RFC3339),
		EndTime:    m.EndTime.Format(time.RFC3339),
		SecretCode: m.SecretCode,
		Winner:     m.Winner,
		Players:    m.Players,
	}
	if doc.Winner == "" {
		doc.Winner = noWinner
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling match %s: %w", m.GameID, err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	name := fmt.Sprintf("%s_%s.xml", m.GameID, time.Now().Format("20060102_150405"))
	path := filepath.Join(r.dir, name)

	tmp, err := os.CreateTemp(r.dir, name+".tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing match %s: %w", m.GameID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("renaming match file: %w", err)
	}

	return path, nil
}

// Recent returns up to limit records, newest first. Malformed files are
// skipped with a warning, never fatal.
func (r *XMLRecorder) Recent(_ context.Context, limit int) ([]Match, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading results dir: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(r.dir, e.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	var results []Match
	for _, f := range files {
		if len(results) >= limit {
			break
		}
		m, err := parseMatchFile(f.path)
		if err != nil {
			log.Printf("[RECORD] Skipping malformed record %s: %v", f.path, err)
			continue
		}
		results = append(results, m)
	}
	return results, nil
}

func parseMatchFile(path string) (Match, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Match{}, err
	}

	var doc xmlMatch
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Match{}, err
	}

	start, err := time.Parse(time.RFC3339, doc.StartTime)
	if err != nil {
		return Match{}, fmt.Errorf("bad start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, doc.EndTime)
	if err != nil {
		return Match{}, fmt.Errorf("bad end_time: %w", err)
	}

	winner := doc.Winner
	if winner == noWinner {
		winner = ""
	}

	return Match{
		GameID:     doc.GameID,
		StartTime:  start,
		EndTime:    end,
		SecretCode: doc.SecretCode,
		Winner:     winner,
		Players:    doc.Players,
	}, nil
}
