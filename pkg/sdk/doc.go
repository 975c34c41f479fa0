// Package pictag embeds the pictag image search engine in a Go program.
//
// The client stores image metadata in Valkey, Redis or a local Badger directory
// and ranks images against free-text queries: a query that is a substring of a
// tag or caption matches exactly, everything else is scored by semantic similarity.
//
//	client, _ := pictag.New(ctx,
//	    pictag.WithBadger("./data"),
//	    pictag.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	_, _ = client.Images().Add(ctx, pictag.ImageDraft{
//	    URL: "https://cdn/cat.jpg", Filename: "cat.jpg", Tags: []string{"cat"},
//	})
//	hits, _ := client.Search(ctx, "kitten", 10)
package pictag
