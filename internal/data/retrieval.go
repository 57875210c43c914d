package data

// RetrievalJob tracks one fetch-and-stream request. A job owns its scratch
// directory exclusively and never outlives the request that created it.
type RetrievalJob struct {
	SourceURL  string
	ScratchDir string
	ResultPath string
}
