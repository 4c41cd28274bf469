package answer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("faq entry not found")

// Entry is one curated question/answer pair.
type Entry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Keywords  []string  `json:"keywords"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// FAQ is the local answer source, an SQLite table with an FTS5 index over
// question and keywords.
type FAQ struct {
	db       *sql.DB
	minScore float64

	mu      sync.Mutex
	entropy *rand.Rand
}

// OpenFAQ opens or creates the FAQ tables at dbPath. The file may be shared
// with the face store.
func OpenFAQ(dbPath string) (*FAQ, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	f := &FAQ{
		db:       db,
		minScore: 0.5,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := f.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate faq: %w", err)
	}
	return f, nil
}

func (f *FAQ) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS faq (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		question TEXT NOT NULL,
		keywords TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE VIRTUAL TABLE IF NOT EXISTS faq_fts USING fts5(
		question,
		keywords,
		content=faq,
		content_rowid=seq
	);
	CREATE TRIGGER IF NOT EXISTS faq_ai AFTER INSERT ON faq BEGIN
		INSERT INTO faq_fts(rowid, question, keywords) VALUES (new.seq, new.question, new.keywords);
	END;
	CREATE TRIGGER IF NOT EXISTS faq_ad AFTER DELETE ON faq BEGIN
		INSERT INTO faq_fts(faq_fts, rowid, question, keywords) VALUES('delete', old.seq, old.question, old.keywords);
	END;
	`
	_, err := f.db.Exec(schema)
	return err
}

func (f *FAQ) newID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), f.entropy).String()
}

// Add stores an entry. When keywords is empty they are derived from the question.
func (f *FAQ) Add(ctx context.Context, question, answer string, keywords []string) (Entry, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return Entry{}, errors.New("question and answer are required")
	}
	if len(keywords) == 0 {
		keywords = Keywords(question)
	} else {
		keywords = Keywords(strings.Join(keywords, " "))
	}
	if len(keywords) == 0 {
		return Entry{}, errors.New("question has no searchable words")
	}
	e := Entry{
		ID:        f.newID(),
		Question:  question,
		Keywords:  keywords,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO faq (id, question, keywords, answer, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Question, strings.Join(e.Keywords, " "), e.Answer, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert faq: %w", err)
	}
	return e, nil
}

func (f *FAQ) List(ctx context.Context) ([]Entry, error) {
	rows, err := f.db.QueryContext(ctx, `SELECT id, question, keywords, answer, created_at FROM faq ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list faq: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (f *FAQ) Delete(ctx context.Context, id string) error {
	res, err := f.db.ExecContext(ctx, `DELETE FROM faq WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Lookup finds the entry whose keywords best cover the question. FTS5 narrows
// the candidates; an entry is accepted when at least minScore of its keywords
// appear in the question.
func (f *FAQ) Lookup(ctx context.Context, question string) (string, bool) {
	words := Keywords(question)
	if len(words) == 0 {
		return "", false
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	rows, err := f.db.QueryContext(ctx, `
		SELECT f.id, f.question, f.keywords, f.answer, f.created_at
		FROM faq_fts JOIN faq f ON f.seq = faq_fts.rowid
		WHERE faq_fts MATCH ?
		ORDER BY rank
		LIMIT 10`, strings.Join(quoted, " OR "))
	if err != nil {
		log.Printf("[answer] faq lookup failed: %v", err)
		return "", false
	}
	defer rows.Close()

	asked := map[string]bool{}
	for _, w := range words {
		asked[w] = true
	}
	var best Entry
	bestScore := 0.0
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Printf("[answer] faq scan failed: %v", err)
			return "", false
		}
		hit := 0
		for _, k := range e.Keywords {
			if asked[k] {
				hit++
			}
		}
		score := float64(hit) / float64(len(e.Keywords))
		if score > bestScore {
			best, bestScore = e, score
		}
	}
	if bestScore < f.minScore {
		return "", false
	}
	return best.Answer, true
}

func (f *FAQ) Close() error { return f.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var keywords, created string
	if err := row.Scan(&e.ID, &e.Question, &keywords, &e.Answer, &created); err != nil {
		return Entry{}, fmt.Errorf("scan faq: %w", err)
	}
	e.Keywords = strings.Fields(keywords)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return e, nil
}
