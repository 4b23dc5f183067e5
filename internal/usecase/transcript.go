package usecase

// transcriptBuffer holds confirmed text plus the tentative tail of the
// utterance in progress. The field always shows final + interim.
type transcriptBuffer struct {
	final   string
	interim string
}

// apply appends finalized segments and replaces the interim tail.
func (b *transcriptBuffer) apply(finals []string, interim string) string {
	for _, segment := range finals {
		b.final += segment
	}
	b.interim = interim
	return b.text()
}

func (b *transcriptBuffer) text() string {
	return b.final + b.interim
}

func (b *transcriptBuffer) dropInterim() {
	b.interim = ""
}

func (b *transcriptBuffer) clear() {
	b.final = ""
	b.interim = ""
}
