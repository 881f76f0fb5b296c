// Package searcher scopes ranking to a single ingested document.
//
// [DocumentSearcher] loads the document's chunks from the store, embeds the
// query and hands both to a [search.Ranker]. [FallbackSearcher] decorates
// any [Searcher] and tops up thin hybrid results with a keyword-only pass:
//
//	base, _ := searcher.NewDocumentSearcher(
//	    searcher.WithChunkLister(st),
//	    searcher.WithEmbedder(emb),
//	)
//	s := searcher.NewFallbackSearcher(base)
//	results, err := s.SearchHybrid(ctx, docID, "is physical therapy covered", 10, 0.5)
//
// All implementations are safe for concurrent use.
package searcher
