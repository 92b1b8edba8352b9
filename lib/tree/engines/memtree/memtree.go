package memtree

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for the snapshot format
const (
	magicNum       = "MEMTREE\x00" // Snapshot format identifier
	memtreeVersion = 1             // Snapshot format version
)

// --------------------------------------------------------------------------
// Node structure
// --------------------------------------------------------------------------

// node is a single directory or leaf of the in-memory tree
type node struct {
	name     string
	kind     tree.Kind
	children *xsync.MapOf[string, *node] // Children (directories only)
	mu       sync.RWMutex                // Protects data
	data     []byte                      // Payload (leaves only)
	removed  atomic.Bool                 // Set once the node was detached from the tree
}

func newNode(name string, kind tree.Kind) *node {
	n := &node{name: name, kind: kind}
	if kind == tree.KindDirectory {
		n.children = xsync.NewMapOf[string, *node]()
	}
	return n
}

// markRemoved flags the node and all its descendants as removed so stale handles fail with tree.ErrNotFound
func (n *node) markRemoved() {
	n.removed.Store(true)
	if n.children == nil {
		return
	}
	n.children.Range(func(_ string, child *node) bool {
		child.markRemoved()
		return true
	})
}

// sortedChildren returns a snapshot of the children ordered by name
func (n *node) sortedChildren() []*node {
	children := make([]*node, 0, n.children.Size())
	n.children.Range(func(_ string, child *node) bool {
		children = append(children, child)
		return true
	})
	sort.Slice(children, func(i, j int) bool { return children[i].name < children[j].name })
	return children
}

// --------------------------------------------------------------------------
// Tree structure
// --------------------------------------------------------------------------

// MemTree is an in-memory tree. The value itself is the root directory.
//
// Thread-safety: All methods are thread-safe. Load replaces the whole tree and invalidates
// every handle obtained before the call.
type MemTree struct {
	dirHandle
}

type treeState struct {
	root   atomic.Pointer[node]
	closed atomic.Bool
}

// NewMemTree creates a new, empty in-memory tree
func NewMemTree() *MemTree {
	state := &treeState{}
	state.root.Store(newNode("", tree.KindDirectory))
	return &MemTree{dirHandle{state: state}}
}

// Ping reports tree.ErrUnavailable once the tree was closed
func (t *MemTree) Ping(_ context.Context) error {
	if t.state.closed.Load() {
		return tree.ErrUnavailable
	}
	return nil
}

// Close makes every later operation on the tree (and all its handles) fail with tree.ErrUnavailable
func (t *MemTree) Close() error {
	t.state.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Directory handle
// --------------------------------------------------------------------------

type dirHandle struct {
	state *treeState
	n     *node // nil for the root, which is resolved on every call
}

// resolve returns the node of the handle or an error if the tree is closed or the node was removed
func (d *dirHandle) resolve() (*node, error) {
	if d.state.closed.Load() {
		return nil, tree.ErrUnavailable
	}
	n := d.n
	if n == nil {
		n = d.state.root.Load()
	}
	if n.removed.Load() {
		return nil, tree.ErrNotFound
	}
	return n, nil
}

func (d *dirHandle) Name() string {
	if d.n == nil {
		return ""
	}
	return d.n.name
}

func (d *dirHandle) Kind() tree.Kind {
	return tree.KindDirectory
}

// child looks up (and optionally creates) the named child with the expected kind
func (d *dirHandle) child(name string, kind tree.Kind, create bool) (*node, error) {
	if err := tree.ValidateName(name); err != nil {
		return nil, err
	}
	n, err := d.resolve()
	if err != nil {
		return nil, err
	}

	var c *node
	if create {
		c, _ = n.children.LoadOrCompute(name, func() *node { return newNode(name, kind) })
	} else {
		var ok bool
		if c, ok = n.children.Load(name); !ok {
			return nil, tree.ErrNotFound
		}
	}

	if c.kind != kind {
		return nil, tree.ErrTypeMismatch
	}
	return c, nil
}

func (d *dirHandle) Directory(_ context.Context, name string, create bool) (tree.Directory, error) {
	c, err := d.child(name, tree.KindDirectory, create)
	if err != nil {
		return nil, err
	}
	return &dirHandle{state: d.state, n: c}, nil
}

func (d *dirHandle) Leaf(_ context.Context, name string, create bool) (tree.Leaf, error) {
	c, err := d.child(name, tree.KindLeaf, create)
	if err != nil {
		return nil, err
	}
	return &leafHandle{state: d.state, n: c}, nil
}

func (d *dirHandle) Range(_ context.Context, f func(entry tree.Entry) bool) error {
	n, err := d.resolve()
	if err != nil {
		return err
	}
	for _, c := range n.sortedChildren() {
		var handle tree.Node
		if c.kind == tree.KindDirectory {
			handle = &dirHandle{state: d.state, n: c}
		} else {
			handle = &leafHandle{state: d.state, n: c}
		}
		if !f(tree.Entry{Name: c.name, Kind: c.kind, Node: handle}) {
			return nil
		}
	}
	return nil
}

func (d *dirHandle) Remove(_ context.Context, name string, recursive bool) error {
	if err := tree.ValidateName(name); err != nil {
		return err
	}
	n, err := d.resolve()
	if err != nil {
		return err
	}

	var result error
	n.children.Compute(name, func(c *node, loaded bool) (*node, bool) {
		if !loaded {
			result = tree.ErrNotFound
			return c, true // nothing stored, nothing to delete
		}
		if c.kind == tree.KindDirectory && !recursive && c.children.Size() > 0 {
			result = tree.ErrNotEmpty
			return c, false
		}
		c.markRemoved()
		return c, true
	})
	return result
}

// --------------------------------------------------------------------------
// Leaf handle
// --------------------------------------------------------------------------

type leafHandle struct {
	state *treeState
	n     *node
}

func (l *leafHandle) resolve() error {
	if l.state.closed.Load() {
		return tree.ErrUnavailable
	}
	if l.n.removed.Load() {
		return tree.ErrNotFound
	}
	return nil
}

func (l *leafHandle) Name() string {
	return l.n.name
}

func (l *leafHandle) Kind() tree.Kind {
	return tree.KindLeaf
}

func (l *leafHandle) Read(_ context.Context) ([]byte, error) {
	if err := l.resolve(); err != nil {
		return nil, err
	}
	l.n.mu.RLock()
	defer l.n.mu.RUnlock()

	// Copy value to prevent memory corruption
	data := make([]byte, len(l.n.data))
	copy(data, l.n.data)
	return data, nil
}

func (l *leafHandle) Writable(_ context.Context) (tree.Writable, error) {
	if err := l.resolve(); err != nil {
		return nil, err
	}
	return tree.NewBufferedWritable(func(data []byte) error {
		if err := l.resolve(); err != nil {
			return err
		}
		l.n.mu.Lock()
		l.n.data = data
		l.n.mu.Unlock()
		return nil
	}), nil
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Save writes a snapshot of the whole tree to the writer.
// Concurrent modifications are allowed, the snapshot is fuzzy with regard to them.
func (t *MemTree) Save(w io.Writer) error {
	if t.state.closed.Load() {
		return tree.ErrUnavailable
	}

	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(memtreeVersion)); err != nil {
		return err
	}

	if err := saveDir(bw, t.state.root.Load()); err != nil {
		return err
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// saveDir writes the children of a directory in pre-order:
// count, then per child kind, name length, name and either the payload or the nested directory
func saveDir(bw *bufio.Writer, n *node) error {
	children := n.sortedChildren()
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(children))); err != nil {
		return err
	}

	for _, c := range children {
		if err := binary.Write(bw, binary.LittleEndian, uint8(c.kind)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(c.name))); err != nil {
			return err
		}
		if _, err := bw.WriteString(c.name); err != nil {
			return err
		}

		if c.kind == tree.KindDirectory {
			if err := saveDir(bw, c); err != nil {
				return err
			}
			continue
		}

		c.mu.RLock()
		data := c.data
		c.mu.RUnlock()
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(data))); err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the tree with the snapshot read from the reader.
// All handles obtained before the call become stale.
func (t *MemTree) Load(r io.Reader) error {
	if t.state.closed.Load() {
		return tree.ErrUnavailable
	}

	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid snapshot format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != memtreeVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, memtreeVersion)
	}

	root := newNode("", tree.KindDirectory)
	if err := loadDir(br, root); err != nil {
		return err
	}

	old := t.state.root.Swap(root)
	old.markRemoved()
	return nil
}

func loadDir(br *bufio.Reader, n *node) error {
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		var kind uint8
		if err := binary.Read(br, binary.LittleEndian, &kind); err != nil {
			return err
		}
		var nameLen uint32
		if err := binary.Read(br, binary.LittleEndian, &nameLen); err != nil {
			return err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return err
		}

		c := newNode(string(name), tree.Kind(kind))
		switch c.kind {
		case tree.KindDirectory:
			if err := loadDir(br, c); err != nil {
				return err
			}
		case tree.KindLeaf:
			var dataLen uint32
			if err := binary.Read(br, binary.LittleEndian, &dataLen); err != nil {
				return err
			}
			c.data = make([]byte, dataLen)
			if _, err := io.ReadFull(br, c.data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid node kind %d in snapshot", kind)
		}
		n.children.Store(c.name, c)
	}
	return nil
}
