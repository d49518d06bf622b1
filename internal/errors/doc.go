// Package errors provides structured, actionable errors for the debounce
// tools.
//
// Each error carries a registered code (e.g. "E120"), a category, a short
// message and, where it helps, the config file location, a hint and an
// example of the correct form.
//
// # Error Categories
//
//   - config: configuration file and value errors
//   - cli: command-line usage and watch errors
//   - runtime: failures while the event loop is running
//
// # Usage
//
//	err := errors.New("E121").
//	    WithLocation("debounce.yaml", 3, 8).
//	    WithSuggestion("Use a non-negative Go duration such as 300ms")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E121: Invalid delay
//	//
//	//   debounce.yaml:3:8
//	//
//	//       2 │ name: search
//	//   →   3 │ delay: soon
//	//         │        ^
//	//       4 │ queue_size: 64
//	//
//	//   Hint: Use a non-negative Go duration such as 300ms
package errors
