package network

// Router decides the next agent after each turn. An empty name ends the run.
// Implementations must be deterministic functions of task and state.
type Router[S State] interface {
	Route(task Task, state S) (string, error)
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc[S State] func(task Task, state S) (string, error)

// Route calls f.
func (f RouterFunc[S]) Route(task Task, state S) (string, error) {
	return f(task, state)
}
