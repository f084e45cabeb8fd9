package mpf

// Context groups the terminations mixed together for one session's media
// pipeline — the "context object (media-pipeline handle)" spec.md §3
// assigns every session at creation. Grounded on mpf_context_create's
// fixed-capacity termination slot array (mrcp_server_session.c passes 5).
type Context struct {
	ID              string
	MaxTerminations int

	terminations []*Termination
}

// NewContext creates an empty context with room for maxTerminations.
func NewContext(id string, maxTerminations int) *Context {
	return &Context{ID: id, MaxTerminations: maxTerminations}
}

// Add registers t with the context.
func (c *Context) Add(t *Termination) {
	c.terminations = append(c.terminations, t)
}

// Remove drops t from the context.
func (c *Context) Remove(t *Termination) {
	for i, e := range c.terminations {
		if e == t {
			c.terminations = append(c.terminations[:i], c.terminations[i+1:]...)
			return
		}
	}
}

// Terminations returns the terminations currently mixed into the context.
func (c *Context) Terminations() []*Termination {
	return c.terminations
}
