package controller

// Factory produces the descriptor of one controller. An empty descriptor
// means there is nothing to register.
type Factory func(r Router) (Descriptor, error)

// Loader turns a descriptor module path into its Factory.
type Loader interface {
	Load(path string) (Factory, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Factory, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (Factory, error) {
	return f(path)
}
