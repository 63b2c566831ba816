package markup

// Bind substitutes every Argument placeholder in tmpl with the corresponding
// caller-supplied subtree. Nodes are immutable once built, so substituted
// subtrees are shared rather than cloned.
func Bind(tmpl Node, args []Node) (Node, error) {
	switch n := tmpl.(type) {
	case *Text:
		return n, nil
	case *Argument:
		if n.Index < 0 || n.Index >= len(args) {
			return nil, &ArgumentIndexError{Index: n.Index, Count: len(args)}
		}
		return args[n.Index], nil
	case *Many:
		nodes, err := bindAll(n.Nodes, args)
		if err != nil {
			return nil, err
		}
		return &Many{nodeBase: n.nodeBase, Nodes: nodes}, nil
	case *Call:
		bound, err := bindAll(n.Args, args)
		if err != nil {
			return nil, err
		}
		return &Call{nodeBase: n.nodeBase, Macro: n.Macro, Params: n.Params, Args: bound}, nil
	default:
		return tmpl, nil
	}
}

func bindAll(nodes []Node, args []Node) ([]Node, error) {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		b, err := Bind(n, args)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
