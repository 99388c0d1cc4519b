package model

// Text markers shared by the runner, which writes them into result files,
// and the summarizer, which classifies result files by them. They are
// part of the result file format and are matched literally.
const (
	// MarkerInvalid starts the stamp written for configurations the
	// validity predicate rejected. The summarizer matches on this prefix.
	MarkerInvalid = "CONFIGURAÇÃO INVÁLIDA"

	// MarkerInvalidStamp is the full first line of the stamp.
	MarkerInvalidStamp = MarkerInvalid + " PRÉ-DETECTADA"

	// MarkerReason prefixes each violated rule in the stamp.
	MarkerReason = "Motivo:"

	// MarkerRunError heads the diagnostic block appended when the tool
	// fails at runtime.
	MarkerRunError = "ERRO NA EXECUÇÃO"

	// ToolNoOrganization is the message CACTI prints when its
	// organization search finds no valid data array for the geometry.
	ToolNoOrganization = "no valid data array organizations found"
)
