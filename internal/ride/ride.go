package ride

// Request describes one trip request as submitted to the dispatch platform.
// It is immutable for the lifetime of a monitor; the same values are reused
// verbatim when a request is re-submitted after a no-driver outcome.
type Request struct {
	ID          string `json:"solicitacaoId,omitempty"`
	Origin      string `json:"origem"`
	Destination string `json:"destino"`
	Fare        string `json:"valor,omitempty"`
	Note        string `json:"observacao,omitempty"`
}

// OriginText returns the origin description or the upstream placeholder.
func (r Request) OriginText() string {
	if r.Origin == "" {
		return "não informada"
	}
	return r.Origin
}

// DestinationText returns the destination description or the upstream placeholder.
func (r Request) DestinationText() string {
	if r.Destination == "" {
		return "não informado"
	}
	return r.Destination
}

// StageSnapshot is one poll result from the dispatch status endpoint.
// Field names mirror the EtapaSolicitacao payload.
type StageSnapshot struct {
	Stage          int    `json:"Etapa"`
	RawStatus      string `json:"StatusSolicitacao"`
	DriverName     string `json:"NomePrestador"`
	Vehicle        string `json:"Veiculo"`
	Plate          string `json:"Placa"`
	Color          string `json:"Cor"`
	InProgress     bool   `json:"EmViagem"`
	Finished       bool   `json:"ViagemFinalizada"`
	OriginETA      string `json:"PrevisaoChegadaOrigem"`
	DestinationETA string `json:"PrevisaoChegadaDestino"`
}

// HasDriverDetails reports whether the snapshot carries enough driver
// information to treat the ride as assigned regardless of the status text.
func (s StageSnapshot) HasDriverDetails() bool {
	return s.DriverName != "" && s.Vehicle != "" && s.Plate != ""
}
