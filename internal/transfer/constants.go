package transfer

// DefaultChunkSize is the reference chunk size. The receiver derives nothing
// from chunk boundaries, so peers may use different sizes.
const DefaultChunkSize = 16 * 1024

// DefaultFileName names artifacts whose file-meta carried no name.
const DefaultFileName = "download"

// Direction tells progress and errors of the two transfer directions apart.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "send"
	}
	return "receive"
}
