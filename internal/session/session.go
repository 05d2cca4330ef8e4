// Package session holds per-chat intake state. The bot processes one
// inbound event at a time, so the store is a plain map with no locking;
// nothing here survives a restart.
package session

type Kind string

const (
	KindProperty Kind = "property"
	KindNews     Kind = "news"
	KindDelete   Kind = "delete"
)

// Step identifies the current position in an intake sequence.
type Step string

const (
	StepType         Step = "type"
	StepTitle        Step = "title"
	StepPrice        Step = "price"
	StepAddress      Step = "address"
	StepDistrict     Step = "district"
	StepFloor        Step = "floor"
	StepRooms        Step = "rooms"
	StepLift         Step = "has_lift"
	StepBalcony      Step = "has_balcony"
	StepBathroom     Step = "bathroom"
	StepHomeType     Step = "type_home"
	StepNearby       Step = "nearby"
	StepAvailability Step = "date_use"
	StepArea         Step = "area"
	StepDescription  Step = "description"
	StepMainImage    Step = "main_image"
	StepMoreImages   Step = "additional_images"

	StepNewsTitle Step = "news_title"
	StepNewsLogo  Step = "news_logo"
	StepNewsBody  Step = "news_text"

	StepDeleteTitle Step = "awaiting_title_for_deletion"
)

// ImageRef points at one uploaded photo. FileID is the platform-native
// reference and is preferred for resends; URL is the fetchable link.
type ImageRef struct {
	URL    string
	FileID string
}

func (r ImageRef) Empty() bool { return r.URL == "" && r.FileID == "" }

type DealType string

const (
	DealRent DealType = "rent"
	DealBuy  DealType = "buy"
)

// HomeType values are the backend's wire values.
type HomeType string

const (
	HomeApartment HomeType = "квартира"
	HomeHouse     HomeType = "дом"
	HomeVilla     HomeType = "вилла"
)

// Districts the district step accepts, in keyboard order.
var Districts = []string{"Mamaia", "Constanta", "Navodari", "Ovidiu", "Lumina"}

type PropertyDraft struct {
	Title        string
	DealType     DealType
	Price        int
	Address      string
	District     string
	Floor        int
	Rooms        int
	HasLift      bool
	HasBalcony   bool
	Bathrooms    int
	HomeType     HomeType
	Nearby       string
	Availability string
	AreaSqm      int
	Description  string
	MainImage    ImageRef
	Additional   []ImageRef
}

// Images returns the main image followed by the additional ones, in upload
// order.
func (d *PropertyDraft) Images() []ImageRef {
	if d.MainImage.Empty() {
		return append([]ImageRef(nil), d.Additional...)
	}
	out := make([]ImageRef, 0, 1+len(d.Additional))
	out = append(out, d.MainImage)
	return append(out, d.Additional...)
}

type NewsDraft struct {
	Title string
	Logo  ImageRef
	Body  string
}

type Session struct {
	Kind     Kind
	Step     Step
	Property *PropertyDraft
	News     *NewsDraft
}

// Store keeps at most one in-progress session per chat.
type Store struct {
	m map[int64]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[int64]*Session)}
}

func (s *Store) Get(chatID int64) (*Session, bool) {
	sess, ok := s.m[chatID]
	return sess, ok
}

func (s *Store) Set(chatID int64, sess *Session) {
	s.m[chatID] = sess
}

func (s *Store) Delete(chatID int64) {
	delete(s.m, chatID)
}

func (s *Store) Len() int { return len(s.m) }
