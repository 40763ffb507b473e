// Package receiptdex embeds receipt retrieval in a Go program: the same
// interpreter, filter compiler and paginated store reads the HTTP API uses,
// without running the server.
//
// # Natural-language search
//
//	client, _ := receiptdex.New(ctx,
//	    receiptdex.WithDynamoDB("us-east-1", "receipts"),
//	    receiptdex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	res, _ := client.Receipts("alice").Search(ctx, "starbucks purchase in march")
//	for _, r := range res.Receipts {
//	    fmt.Println(r.TransactionDate, r.VendorName, r.TotalAmount)
//	}
//
// # Bring your own model
//
// Any type implementing Completer can answer the interpreter prompt:
//
//	client, _ := receiptdex.New(ctx,
//	    receiptdex.WithMemoryStore(100),
//	    receiptdex.WithCompleter(myModel),
//	)
//
// Search never falls back to an unfiltered listing on model or store
// failures; check errors with errors.Is against the exported sentinels.
package receiptdex
