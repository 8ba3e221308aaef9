package erp

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/erp/bridge/internal/domain/erp"
	"github.com/spf13/cast"
)

// MemoryConnection is an erp.Connection over an in-process Fixture. It backs
// local runs and tests.
type MemoryConnection struct {
	mu          sync.Mutex
	fixture     *Fixture
	snapshot    map[string][]Row
	persistPath string
	closed      bool
}

var _ erp.Connection = (*MemoryConnection)(nil)

// MemoryOption configures a MemoryConnection
type MemoryOption func(*MemoryConnection)

// WithPersistPath writes the fixture back to path after every commit
func WithPersistPath(path string) MemoryOption {
	return func(c *MemoryConnection) {
		c.persistPath = path
	}
}

// NewMemoryConnection opens a connection over f. A nil fixture starts from the default schema.
func NewMemoryConnection(f *Fixture, opts ...MemoryOption) *MemoryConnection {
	if f == nil {
		f = DefaultSchema()
	}
	c := &MemoryConnection{fixture: f}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fixture returns the live tables
func (c *MemoryConnection) Fixture() *Fixture {
	return c.fixture
}

// Dataset opens a cursor over table
func (c *MemoryConnection) Dataset(ctx context.Context, table string) (erp.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, erp.ErrNotConnected
	}
	t, ok := c.fixture.Tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrUnknownTable, table)
	}
	ds := &memoryDataset{conn: c, name: table, table: t}
	ds.reorder()
	return ds, nil
}

// StartTransaction snapshots all tables
func (c *MemoryConnection) StartTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return erp.ErrNotConnected
	}
	if c.snapshot != nil {
		return erp.ErrInTransaction
	}
	c.snapshot = c.fixture.clone()
	return nil
}

// Commit drops the snapshot and persists the fixture when configured
func (c *MemoryConnection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return erp.ErrNoTransaction
	}
	c.snapshot = nil
	if c.persistPath != "" {
		return c.fixture.Save(c.persistPath)
	}
	return nil
}

// Rollback restores the tables to the snapshot
func (c *MemoryConnection) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return erp.ErrNoTransaction
	}
	for name, rows := range c.snapshot {
		c.fixture.Tables[name].Rows = rows
	}
	c.snapshot = nil
	return nil
}

// Close ends the session. Writes outside a transaction are persisted here.
func (c *MemoryConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.snapshot != nil {
		for name, rows := range c.snapshot {
			c.fixture.Tables[name].Rows = rows
		}
		c.snapshot = nil
	}
	if c.persistPath != "" {
		return c.fixture.Save(c.persistPath)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dataset
// ---------------------------------------------------------------------------

type datasetMode int

const (
	modeBrowse datasetMode = iota
	modeEdit
	modeAppend
)

type memoryDataset struct {
	conn  *MemoryConnection
	name  string
	table *Table

	index     []string
	rangeFrom []any
	rangeTo   []any
	ranged    bool

	order  []int // row positions visible through the cursor, in index order
	pos    int
	mode   datasetMode
	buffer Row
	closed bool
}

var _ erp.Dataset = (*memoryDataset)(nil)

func (d *memoryDataset) Name() string {
	return d.name
}

func (d *memoryDataset) FieldType(field string) (erp.FieldType, error) {
	t, ok := d.table.Fields[field]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", erp.ErrUnknownField, d.name, field)
	}
	return t, nil
}

func (d *memoryDataset) Value(field string) (any, error) {
	if _, err := d.FieldType(field); err != nil {
		return nil, err
	}
	d.conn.mu.Lock()
	defer d.conn.mu.Unlock()
	if d.mode != modeBrowse {
		return d.buffer[field], nil
	}
	row, err := d.current()
	if err != nil {
		return nil, err
	}
	return row[field], nil
}

func (d *memoryDataset) SetValue(field string, value any) error {
	if _, err := d.FieldType(field); err != nil {
		return err
	}
	if d.mode == modeBrowse {
		return erp.ErrNotEditing
	}
	d.buffer[field] = value
	return nil
}

func (d *memoryDataset) FindKey(index string, key ...any) (bool, error) {
	if err := d.browsing(); err != nil {
		return false, err
	}
	if err := d.useIndex(index); err != nil {
		return false, err
	}
	d.conn.mu.Lock()
	defer d.conn.mu.Unlock()
	d.reorder()
	for i, pos := range d.order {
		if compareKeys(d.table.Rows[pos], d.index, key) == 0 {
			d.pos = i
			return true, nil
		}
	}
	return false, nil
}

func (d *memoryDataset) SetRange(index string, from, to []any) error {
	if err := d.browsing(); err != nil {
		return err
	}
	if err := d.useIndex(index); err != nil {
		return err
	}
	d.rangeFrom, d.rangeTo, d.ranged = from, to, true
	return d.First()
}

func (d *memoryDataset) CancelRange() error {
	if err := d.browsing(); err != nil {
		return err
	}
	d.rangeFrom, d.rangeTo, d.ranged = nil, nil, false
	return d.First()
}

func (d *memoryDataset) First() error {
	if err := d.browsing(); err != nil {
		return err
	}
	d.conn.mu.Lock()
	defer d.conn.mu.Unlock()
	d.reorder()
	d.pos = 0
	return nil
}

func (d *memoryDataset) Next() error {
	if err := d.browsing(); err != nil {
		return err
	}
	if d.EOF() {
		return erp.ErrEOF
	}
	d.pos++
	return nil
}

func (d *memoryDataset) EOF() bool {
	return d.pos >= len(d.order)
}

func (d *memoryDataset) Edit() error {
	if d.mode != modeBrowse {
		return erp.ErrAlreadyEditing
	}
	d.conn.mu.Lock()
	defer d.conn.mu.Unlock()
	row, err := d.current()
	if err != nil {
		return err
	}
	d.buffer = row.clone()
	d.mode = modeEdit
	return nil
}

func (d *memoryDataset) Append() error {
	if d.mode != modeBrowse {
		return erp.ErrAlreadyEditing
	}
	d.buffer = Row{}
	d.mode = modeAppend
	return nil
}

func (d *memoryDataset) Post() error {
	if d.mode == modeBrowse {
		return erp.ErrNotEditing
	}
	d.conn.mu.Lock()
	defer d.conn.mu.Unlock()

	var posted int
	switch d.mode {
	case modeEdit:
		row, err := d.current()
		if err != nil {
			return err
		}
		posted = d.order[d.pos]
		for k, v := range d.buffer {
			row[k] = v
		}
	case modeAppend:
		if err := d.number(d.buffer); err != nil {
			return err
		}
		d.table.Rows = append(d.table.Rows, d.buffer)
		posted = len(d.table.Rows) - 1
	}
	d.mode, d.buffer = modeBrowse, nil

	d.reorder()
	d.pos = len(d.order)
	if i := slices.Index(d.order, posted); i >= 0 {
		d.pos = i
	}
	return nil
}

func (d *memoryDataset) Cancel() error {
	d.mode, d.buffer = modeBrowse, nil
	return nil
}

func (d *memoryDataset) Close() error {
	d.closed = true
	d.order = nil
	return nil
}

func (d *memoryDataset) browsing() error {
	if d.closed {
		return erp.ErrNotConnected
	}
	if d.mode != modeBrowse {
		return erp.ErrAlreadyEditing
	}
	return nil
}

func (d *memoryDataset) useIndex(index string) error {
	fields := erp.IndexFields(index)
	for _, f := range fields {
		if _, ok := d.table.Fields[f]; !ok {
			return fmt.Errorf("%w: %s on %s", erp.ErrUnknownIndex, index, d.name)
		}
	}
	if !slices.Equal(fields, d.index) {
		d.rangeFrom, d.rangeTo, d.ranged = nil, nil, false
	}
	d.index = fields
	return nil
}

// current returns the row under the cursor. Callers hold conn.mu.
func (d *memoryDataset) current() (Row, error) {
	if d.EOF() {
		return nil, erp.ErrEOF
	}
	pos := d.order[d.pos]
	if pos >= len(d.table.Rows) {
		return nil, erp.ErrRecordNotFound
	}
	return d.table.Rows[pos], nil
}

// reorder recomputes the visible rows for the current index and range.
// Callers hold conn.mu.
func (d *memoryDataset) reorder() {
	d.order = d.order[:0]
	for i, row := range d.table.Rows {
		if d.ranged {
			if d.rangeFrom != nil && compareKeys(row, d.index, d.rangeFrom) < 0 {
				continue
			}
			if d.rangeTo != nil && compareKeys(row, d.index, d.rangeTo) > 0 {
				continue
			}
		}
		d.order = append(d.order, i)
	}
	if len(d.index) == 0 {
		return
	}
	slices.SortStableFunc(d.order, func(a, b int) int {
		ra, rb := d.table.Rows[a], d.table.Rows[b]
		for _, f := range d.index {
			if c := compareValues(ra[f], rb[f]); c != 0 {
				return c
			}
		}
		return 0
	})
}

// number assigns the next auto-increment value to an appended row that has none.
// Callers hold conn.mu.
func (d *memoryDataset) number(row Row) error {
	ai := d.table.AutoIncrement
	if ai == nil {
		return nil
	}
	if v, ok := row[ai.Field]; ok && v != nil && text(v) != "" && text(v) != "0" {
		return nil
	}
	next := ai.Start
	for _, existing := range d.table.Rows {
		sameScope := true
		for _, s := range ai.Scope {
			if compareValues(existing[s], row[s]) != 0 {
				sameScope = false
				break
			}
		}
		if !sameScope {
			continue
		}
		if n, err := cast.ToInt64E(existing[ai.Field]); err == nil && n >= next {
			next = n + 1
		}
	}
	v, err := erp.Convert(d.table.Fields[ai.Field], next)
	if err != nil {
		return err
	}
	row[ai.Field] = v
	return nil
}
