package analyzer

// Symbol is one row of the symbol table. Method is "robot" for the
// declaration row and the command word for assignment rows; Param is 0 for
// declarations and 1 for assignments.
type Symbol struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Param  int    `json:"param"`
	Value  int    `json:"value"`
}

// methodRobot marks a declaration row
const methodRobot = "robot"

// SymbolTable keeps symbols in insertion order with last-write-wins updates
// per (robot, method) pair: updating an existing pair removes the old row and
// appends the new one at the end.
type SymbolTable struct {
	rows []Symbol
}

// NewSymbolTable returns an empty table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// Declare inserts the declaration row for a robot
func (t *SymbolTable) Declare(id string) {
	t.rows = append(t.rows, Symbol{ID: id, Method: methodRobot})
}

// Declared reports whether the robot has a declaration row
func (t *SymbolTable) Declared(id string) bool {
	for _, s := range t.rows {
		if s.ID == id && s.Method == methodRobot {
			return true
		}
	}
	return false
}

// Set upserts the (id, method) row with the given value
func (t *SymbolTable) Set(id, method string, value int) {
	for i, s := range t.rows {
		if s.ID == id && s.Method == method {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	t.rows = append(t.rows, Symbol{ID: id, Method: method, Param: 1, Value: value})
}

// Get returns the row for (id, method)
func (t *SymbolTable) Get(id, method string) (Symbol, bool) {
	for _, s := range t.rows {
		if s.ID == id && s.Method == method {
			return s, true
		}
	}
	return Symbol{}, false
}

// Symbols returns the rows in table order
func (t *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, len(t.rows))
	copy(out, t.rows)
	return out
}

// Robots returns the declared robot names in declaration order
func (t *SymbolTable) Robots() []string {
	var out []string
	for _, s := range t.rows {
		if s.Method == methodRobot {
			out = append(out, s.ID)
		}
	}
	return out
}

// Len returns the number of rows
func (t *SymbolTable) Len() int { return len(t.rows) }
