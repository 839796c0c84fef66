package symbols

// Demo returns a small set of sample declarations for trying out the server.
func Demo() []Declaration {
	return []Declaration{
		{Name: "print_hello", Category: CategoryProcedure, Scope: ScopeGlobal},
		{Name: "calculate_sum", Category: CategoryFunction, Scope: ScopeGlobal},
		{Name: "user_input", Category: CategoryVariable, Scope: "main"},
		{Name: "process_data", Category: CategoryProcedure, Scope: ScopeGlobal},
	}
}
