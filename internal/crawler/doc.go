// Package crawler implements the novel crawl engine: the work item model, the
// error taxonomy, the retry policy and the orchestrator that drains the work
// queue and turns every fetched catalog, chapter and image into persisted
// artifacts and follow-on work.
package crawler
