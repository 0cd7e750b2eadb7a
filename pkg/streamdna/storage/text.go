package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/utils"
)

// FormatVersion is the version written in the header of text databases.
const FormatVersion = 1

const headerPrefix = "# streamdna fingerprints v"

var ErrUnsupportedVersion = errors.New("unsupported fingerprint database version")

// Encode writes db as one line per video, in ascending id order:
//
//	<id, zero-padded to two digits> TAB ([s, s, ...], [s, ...], [s, ...])
//
// preceded by a version header. Sizes use the shortest decimal form that
// parses back to the same float64.
func Encode(w io.Writer, db models.Database) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%d\n", headerPrefix, FormatVersion)
	for _, id := range db.IDs() {
		if id < 0 {
			return fmt.Errorf("negative video id %d", id)
		}
		fmt.Fprintf(bw, "%02d\t%s\n", id, formatTuple(db[id]))
	}
	return bw.Flush()
}

func formatTuple(fp models.Fingerprint) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for q, seq := range fp {
		if q > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('[')
		for i, v := range seq {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatSize(v))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(')')
	return sb.String()
}

// formatSize keeps a trailing ".0" on integral values so the output stays a
// float literal for other readers of the format.
func formatSize(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Decode reads a database written by Encode. Files without a header are
// accepted. Lines that do not hold exactly two tab-separated fields are
// skipped; any other malformed line fails the whole load with a
// *models.ParseError. A later record for the same id replaces an earlier one.
func Decode(r io.Reader, source string) (models.Database, error) {
	db := make(models.Database)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")

		if strings.HasPrefix(text, headerPrefix) {
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, headerPrefix)))
			if err != nil || v != FormatVersion {
				return nil, &models.ParseError{Source: source, Line: line, Err: fmt.Errorf("%w: %q", ErrUnsupportedVersion, text)}
			}
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != 2 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, &models.ParseError{Source: source, Line: line, Err: fmt.Errorf("video id: %w", err)}
		}
		if id < 0 {
			return nil, &models.ParseError{Source: source, Line: line, Err: fmt.Errorf("negative video id %d", id)}
		}

		fp, err := parseTuple(fields[1])
		if err != nil {
			return nil, &models.ParseError{Source: source, Line: line, Err: err}
		}
		db[id] = fp
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return db, nil
}

// tupleParser consumes "([..], [..], [..])" one token at a time.
type tupleParser struct {
	s   string
	pos int
}

func (p *tupleParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n') {
		p.pos++
	}
}

func (p *tupleParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return fmt.Errorf("expected %q at end of input", c)
	}
	if p.s[p.pos] != c {
		return fmt.Errorf("expected %q at column %d, found %q", c, p.pos+1, p.s[p.pos])
	}
	p.pos++
	return nil
}

func (p *tupleParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *tupleParser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune(",] \t", rune(p.s[p.pos])) {
		p.pos++
	}
	tok := p.s[start:p.pos]
	if tok == "" {
		return 0, fmt.Errorf("expected number at column %d", start+1)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", tok, err)
	}
	return v, nil
}

func (p *tupleParser) sequence() ([]float64, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	seq := []float64{}
	if p.peek() == ']' {
		p.pos++
		return seq, nil
	}
	for {
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		seq = append(seq, v)
		switch p.peek() {
		case ',':
			p.pos++
			if p.peek() == ']' { // trailing comma
				p.pos++
				return seq, nil
			}
		case ']':
			p.pos++
			return seq, nil
		default:
			return nil, fmt.Errorf("unterminated sequence at column %d", p.pos+1)
		}
	}
}

func parseTuple(s string) (models.Fingerprint, error) {
	var fp models.Fingerprint
	p := &tupleParser{s: s}

	if err := p.expect('('); err != nil {
		return fp, err
	}
	for q := range fp {
		if q > 0 {
			if err := p.expect(','); err != nil {
				return fp, err
			}
		}
		seq, err := p.sequence()
		if err != nil {
			return fp, fmt.Errorf("quality %s: %w", models.Quality(q), err)
		}
		fp[q] = seq
	}
	if p.peek() == ',' { // trailing comma, as in Python tuple literals
		p.pos++
	}
	if err := p.expect(')'); err != nil {
		return fp, err
	}
	if p.peek() != 0 {
		return fp, fmt.Errorf("trailing data at column %d", p.pos+1)
	}
	return fp, nil
}

// TextStore persists a database in the text format.
type TextStore struct {
	path string
}

func NewTextStore(path string) *TextStore {
	return &TextStore{path: path}
}

func (s *TextStore) Save(db models.Database) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return fmt.Errorf("creating database dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, db); err != nil {
		tmp.Close()
		return fmt.Errorf("writing database: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting database file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing database file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing database file: %w", err)
	}
	return nil
}

func (s *TextStore) Load() (models.Database, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer f.Close()
	return Decode(f, s.path)
}

func (s *TextStore) Close() error {
	return nil
}
