package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"notelink/internal/storage/fs"
)

var ErrNoteNotFound = errors.New("note not found")

type Index struct {
	db          *sql.DB
	lockTimeout time.Duration
	logger      *slog.Logger
}

type OpenOptions struct {
	// LockTimeout bounds how long busy statements are retried.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

type NoteSummary struct {
	Path  string
	Title string
	MTime time.Time
}

type NameSummary struct {
	Name  string
	Kind  NameKind
	Count int
}

type fileRecord struct {
	ID        int64
	Hash      string
	MTimeUnix int64
	Size      int64
}

func Open(path string) (*Index, error) {
	return OpenWithOptions(path, OpenOptions{})
}

func OpenWithOptions(path string, opts OpenOptions) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	busy := opts.LockTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{db: db, lockTimeout: opts.LockTimeout, logger: logger}, nil
}

func (i *Index) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

// Init creates the schema and brings the index in line with repoPath: a
// schema change rebuilds everything, otherwise changed files are rechecked.
func (i *Index) Init(ctx context.Context, repoPath string) error {
	if _, err := i.exec(ctx, i.db, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	version, err := i.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		i.logger.Info("index schema changed, rebuilding", "from", version, "to", schemaVersion)
		if err := i.setSchemaVersion(ctx, schemaVersion); err != nil {
			return err
		}
		return i.RebuildFromFS(ctx, repoPath)
	}
	return i.RecheckFromFS(ctx, repoPath)
}

func (i *Index) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := i.queryRow(ctx, i.db, "SELECT version FROM schema_version LIMIT 1", nil, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (i *Index) setSchemaVersion(ctx context.Context, v int) error {
	if _, err := i.exec(ctx, i.db, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := i.exec(ctx, i.db, "INSERT INTO schema_version(version) VALUES(?)", v)
	return err
}

// walkNotes calls fn for every markdown file under repoPath, skipping dot
// directories.
func walkNotes(repoPath string, fn func(rel, full string, info os.FileInfo) error) error {
	return filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != repoPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !fs.IsNoteFile(d.Name()) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := fs.RelNotePath(repoPath, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, path, info)
	})
}

func (i *Index) RebuildFromFS(ctx context.Context, repoPath string) error {
	for _, stmt := range []string{"DELETE FROM file_names", "DELETE FROM names", "DELETE FROM files"} {
		if _, err := i.exec(ctx, i.db, stmt); err != nil {
			return err
		}
	}
	count := 0
	err := walkNotes(repoPath, func(rel, full string, info os.FileInfo) error {
		content, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		count++
		return i.IndexNote(ctx, rel, content, info.ModTime(), info.Size())
	})
	if err != nil {
		return err
	}
	i.logger.Info("index rebuilt", "repo", repoPath, "notes", count)
	return nil
}

func (i *Index) RecheckFromFS(ctx context.Context, repoPath string) error {
	records, err := i.loadFileRecords(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(records))
	updated := 0
	err = walkNotes(repoPath, func(rel, full string, info os.FileInfo) error {
		seen[rel] = true
		rec, ok := records[rel]
		if ok && rec.MTimeUnix == info.ModTime().Unix() && rec.Size == info.Size() && hashMatchesBuildVersion(rec.Hash) {
			return nil
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		if ok && ContentHash(content) == rec.Hash {
			_, err := i.exec(ctx, i.db, "UPDATE files SET mtime_unix=?, size=? WHERE id=?", info.ModTime().Unix(), info.Size(), rec.ID)
			return err
		}
		updated++
		return i.IndexNote(ctx, rel, content, info.ModTime(), info.Size())
	})
	if err != nil {
		return err
	}

	removed := 0
	for path := range records {
		if seen[path] {
			continue
		}
		if err := i.RemoveNote(ctx, path); err != nil && !errors.Is(err, ErrNoteNotFound) {
			return err
		}
		removed++
	}
	i.logger.Info("index rechecked", "repo", repoPath, "updated", updated, "removed", removed)
	return nil
}

// IndexNote stores a note and replaces the names it contributes.
func (i *Index) IndexNote(ctx context.Context, notePath string, content []byte, mtime time.Time, size int64) error {
	meta := ParseContent(string(content))
	checksum := ContentHash(content)
	now := time.Now().Unix()

	tx, start, err := i.beginTx(ctx, "index note")
	if err != nil {
		return err
	}
	defer i.rollbackTx(tx, "index note", start)

	var fileID int64
	err = i.queryRow(ctx, tx, "SELECT id FROM files WHERE path=?", []any{notePath}, &fileID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := i.exec(ctx, tx, `
			INSERT INTO files(path, title, hash, mtime_unix, size, updated_at)
			VALUES(?, ?, ?, ?, ?, ?)
		`, notePath, meta.Title, checksum, mtime.Unix(), size, now)
		if err != nil {
			return err
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return err
		}
	case err == nil:
		if _, err := i.exec(ctx, tx, `
			UPDATE files SET title=?, hash=?, mtime_unix=?, size=?, updated_at=? WHERE id=?
		`, meta.Title, checksum, mtime.Unix(), size, now, fileID); err != nil {
			return err
		}
	default:
		return err
	}

	if _, err := i.exec(ctx, tx, "DELETE FROM file_names WHERE file_id=?", fileID); err != nil {
		return err
	}
	for _, n := range meta.Names() {
		if _, err := i.exec(ctx, tx, "INSERT OR IGNORE INTO names(name, kind) VALUES(?, ?)", n.Name, string(n.Kind)); err != nil {
			return err
		}
		var nameID int64
		if err := i.queryRow(ctx, tx, "SELECT id FROM names WHERE name=? AND kind=?", []any{n.Name, string(n.Kind)}, &nameID); err != nil {
			return err
		}
		if _, err := i.exec(ctx, tx, "INSERT OR IGNORE INTO file_names(file_id, name_id) VALUES(?, ?)", fileID, nameID); err != nil {
			return err
		}
	}
	if err := i.pruneNames(ctx, tx); err != nil {
		return err
	}
	return i.commitTx(tx, "index note", start)
}

func (i *Index) IndexNoteIfChanged(ctx context.Context, notePath string, content []byte, mtime time.Time, size int64) error {
	var rec fileRecord
	err := i.queryRow(ctx, i.db, "SELECT id, hash, mtime_unix, size FROM files WHERE path=?", []any{notePath},
		&rec.ID, &rec.Hash, &rec.MTimeUnix, &rec.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return i.IndexNote(ctx, notePath, content, mtime, size)
	}
	if err != nil {
		return err
	}
	if ContentHash(content) == rec.Hash {
		if rec.MTimeUnix == mtime.Unix() && rec.Size == size {
			return nil
		}
		_, err := i.exec(ctx, i.db, "UPDATE files SET mtime_unix=?, size=? WHERE id=?", mtime.Unix(), size, rec.ID)
		return err
	}
	return i.IndexNote(ctx, notePath, content, mtime, size)
}

// IndexFile reads notePath from repoPath and indexes it when it changed.
func (i *Index) IndexFile(ctx context.Context, repoPath, notePath string) error {
	full, err := fs.NoteFilePath(repoPath, notePath)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return err
	}
	return i.IndexNoteIfChanged(ctx, notePath, content, info.ModTime(), info.Size())
}

func (i *Index) RemoveNote(ctx context.Context, notePath string) error {
	tx, start, err := i.beginTx(ctx, "remove note")
	if err != nil {
		return err
	}
	defer i.rollbackTx(tx, "remove note", start)

	var fileID int64
	err = i.queryRow(ctx, tx, "SELECT id FROM files WHERE path=?", []any{notePath}, &fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, notePath)
	}
	if err != nil {
		return err
	}
	if _, err := i.exec(ctx, tx, "DELETE FROM file_names WHERE file_id=?", fileID); err != nil {
		return err
	}
	if _, err := i.exec(ctx, tx, "DELETE FROM files WHERE id=?", fileID); err != nil {
		return err
	}
	if err := i.pruneNames(ctx, tx); err != nil {
		return err
	}
	return i.commitTx(tx, "remove note", start)
}

func (i *Index) pruneNames(ctx context.Context, tx *sql.Tx) error {
	_, err := i.exec(ctx, tx, "DELETE FROM names WHERE id NOT IN (SELECT name_id FROM file_names)")
	return err
}

func (i *Index) NoteExists(ctx context.Context, notePath string) (bool, error) {
	var id int64
	err := i.queryRow(ctx, i.db, "SELECT id FROM files WHERE path=?", []any{notePath}, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (i *Index) ListNotes(ctx context.Context) ([]NoteSummary, error) {
	rows, err := i.query(ctx, i.db, "SELECT path, COALESCE(title, ''), mtime_unix FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []NoteSummary
	for rows.Next() {
		var n NoteSummary
		var mtimeUnix int64
		if err := rows.Scan(&n.Path, &n.Title, &mtimeUnix); err != nil {
			return nil, err
		}
		n.MTime = time.Unix(mtimeUnix, 0).UTC()
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListNames returns names with the number of notes using them. An empty
// kind lists every kind.
func (i *Index) ListNames(ctx context.Context, kind NameKind) ([]NameSummary, error) {
	query := `
		SELECT names.name, names.kind, COUNT(file_names.file_id)
		FROM names
		JOIN file_names ON names.id = file_names.name_id
	`
	var args []any
	if kind != "" {
		query += " WHERE names.kind = ?"
		args = append(args, string(kind))
	}
	query += " GROUP BY names.id ORDER BY names.name, names.kind"

	rows, err := i.query(ctx, i.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NameSummary
	for rows.Next() {
		var n NameSummary
		var k string
		if err := rows.Scan(&n.Name, &k, &n.Count); err != nil {
			return nil, err
		}
		n.Kind = NameKind(k)
		out = append(out, n)
	}
	return out, rows.Err()
}

// EntityNames lists the distinct names referenced by at least one note.
func (i *Index) EntityNames(ctx context.Context) ([]string, error) {
	rows, err := i.query(ctx, i.db, `
		SELECT DISTINCT names.name
		FROM names
		JOIN file_names ON names.id = file_names.name_id
		ORDER BY names.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (i *Index) loadFileRecords(ctx context.Context) (map[string]fileRecord, error) {
	rows, err := i.query(ctx, i.db, "SELECT id, path, hash, mtime_unix, size FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := map[string]fileRecord{}
	for rows.Next() {
		var path string
		var rec fileRecord
		if err := rows.Scan(&rec.ID, &path, &rec.Hash, &rec.MTimeUnix, &rec.Size); err != nil {
			return nil, err
		}
		records[path] = rec
	}
	return records, rows.Err()
}
