package verify

// SampleRows exposes sampleRows for tests.
var SampleRows = sampleRows
