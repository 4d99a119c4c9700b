package parser

// Question is one parsed question: its title and the mapping from raw
// answer codes to display labels. It is read-only after parsing.
type Question struct {
	ID    string
	Title string

	choices map[string]string
	codes   []string
}

// Label maps a cleaned answer code to its display label. Unknown codes are
// returned unchanged.
func (q *Question) Label(code string) string {
	if q == nil {
		return code
	}
	if l, ok := q.choices[code]; ok {
		return l
	}
	return code
}

// Codes returns the choice codes in declaration order.
func (q *Question) Codes() []string {
	return append([]string(nil), q.codes...)
}

// Choices returns a copy of the code to label mapping.
func (q *Question) Choices() map[string]string {
	out := make(map[string]string, len(q.choices))
	for k, v := range q.choices {
		out[k] = v
	}
	return out
}

func (q *Question) HasChoices() bool { return len(q.choices) > 0 }

// Definitions is the question dictionary of one definition document.
type Definitions struct {
	questions map[string]*Question
	order     []string
}

func newDefinitions() *Definitions {
	return &Definitions{questions: map[string]*Question{}}
}

// put stores q; a repeated QID replaces the earlier entry but keeps its position.
func (d *Definitions) put(q *Question) {
	if _, ok := d.questions[q.ID]; !ok {
		d.order = append(d.order, q.ID)
	}
	d.questions[q.ID] = q
}

func (d *Definitions) Get(qid string) (*Question, bool) {
	q, ok := d.questions[qid]
	return q, ok
}

// IDs returns the question IDs in document order.
func (d *Definitions) IDs() []string { return append([]string(nil), d.order...) }

func (d *Definitions) Len() int { return len(d.order) }

// Selectable returns the defined question IDs that are also columns of the
// response data, in document order.
func (d *Definitions) Selectable(columns []string) []string {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	var out []string
	for _, id := range d.order {
		if _, ok := have[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
