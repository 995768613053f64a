// Package query streams the rows of a Flux query to an observer.
//
// A query is finite and cannot be restarted. Runner.Run pushes each row to
// Observer.OnRow in arrival order and then calls exactly one of OnError or
// OnComplete. The query text is passed through unparsed.
//
//	err := runner.Run(ctx, flux, query.Observer{
//	    OnRow:      func(r query.Row) error { fmt.Println(r.Value); return nil },
//	    OnError:    func(err error) { fmt.Println(err) },
//	    OnComplete: func() { fmt.Println("Success") },
//	})
package query
