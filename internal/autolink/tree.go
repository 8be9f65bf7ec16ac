package autolink

// NodeKind is the closed set of node types the rewriter distinguishes.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindDocument
	KindText
	KindCode
	KindLink
	KindImage
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindText:
		return "text"
	case KindCode:
		return "code"
	case KindLink:
		return "link"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

type Event int

const (
	EventNone Event = iota
	EventEnter
	EventExit
)

type Node interface {
	Kind() NodeKind
}

// Tree is a parsed markdown line.
//
// Next walks the tree in document order. Leaf nodes produce a single
// EventEnter; every other node, including empty code, link and image nodes,
// produces EventEnter and EventExit. Next returns EventNone when the walk is
// over.
//
// Nodes may only be mutated after the iterator has left them: a container
// after its EventExit, a leaf after its EventEnter. Inserted nodes are placed
// before the anchor so the walk never visits them.
type Tree interface {
	Next() (Event, Node)
	// Literal returns the source text of a text node.
	Literal(n Node) string
	// InsertTextBefore inserts a plain text node covering Literal(anchor)[start:end].
	InsertTextBefore(anchor Node, start, end int) error
	// InsertLinkBefore inserts a link to dest whose text replaces
	// Literal(anchor)[start:end] and reads display.
	InsertLinkBefore(anchor Node, start, end int, dest, display string) error
	Unlink(n Node)
	Render() (string, error)
}

// TreeModel turns one line of markdown into a Tree.
type TreeModel interface {
	Parse(line string) (Tree, error)
}
