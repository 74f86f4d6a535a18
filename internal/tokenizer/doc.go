// Package tokenizer maps transcripts to the label ids an acoustic model is
// trained against, and label ids back to text.
//
// Every Vocabulary reserves one class for the CTC blank. Available
// vocabularies:
//   - char: the 28-symbol character map (apostrophe, space, a-z) plus blank
//   - JSON symbol tables: HuggingFace CTC vocab.json or tokenizer.json files
//   - tiktoken: BPE subword ids (cl100k_base, p50k_base, r50k_base) plus blank
//
// Example usage:
//
//	vocab, err := tokenizer.Load("char")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	labels, err := vocab.Encode("hello world")
//	// labels = [9 6 13 13 16 1 24 16 19 13 5]
//
//	text, err := vocab.Decode(labels)
package tokenizer
