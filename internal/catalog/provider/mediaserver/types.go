package mediaserver

// Wire shapes shared by Jellyfin and Emby. Both servers speak the same
// PascalCase item API.

type virtualFolder struct {
	Name           string `json:"Name"`
	ItemID         string `json:"ItemId"`
	CollectionType string `json:"CollectionType"`
}

type itemsResponse struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

type item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	ProductionYear    int               `json:"ProductionYear"`
	SeriesID          string            `json:"SeriesId"`
	SeriesName        string            `json:"SeriesName"`
	ParentIndexNumber int               `json:"ParentIndexNumber"`
	IndexNumber       int               `json:"IndexNumber"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	DateLastSaved     string            `json:"DateLastSaved"`
	DateModified      string            `json:"DateModified"`
	RunTimeTicks      int64             `json:"RunTimeTicks"`
	Path              string            `json:"Path"`
	Container         string            `json:"Container"`
	ImageTags         map[string]string `json:"ImageTags"`
	BackdropImageTags []string          `json:"BackdropImageTags"`
	MediaSources      []mediaSource     `json:"MediaSources"`
}

type mediaSource struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name"`
	Path         string        `json:"Path"`
	Container    string        `json:"Container"`
	Size         int64         `json:"Size"`
	Bitrate      int64         `json:"Bitrate"`
	RunTimeTicks int64         `json:"RunTimeTicks"`
	MediaStreams []mediaStream `json:"MediaStreams"`
}

type mediaStream struct {
	Index          int     `json:"Index"`
	Type           string  `json:"Type"` // Video, Audio, Subtitle
	Codec          string  `json:"Codec"`
	Profile        string  `json:"Profile"`
	Language       string  `json:"Language"`
	Title          string  `json:"Title"`
	DisplayTitle   string  `json:"DisplayTitle"`
	ChannelLayout  string  `json:"ChannelLayout"`
	Channels       int     `json:"Channels"`
	SampleRate     int     `json:"SampleRate"`
	BitRate        int64   `json:"BitRate"`
	BitDepth       int     `json:"BitDepth"`
	Width          int     `json:"Width"`
	Height         int     `json:"Height"`
	RealFrameRate  float64 `json:"RealFrameRate"`
	VideoRange     string  `json:"VideoRange"`
	VideoRangeType string  `json:"VideoRangeType"`
	ColorPrimaries string  `json:"ColorPrimaries"`
	ColorTransfer  string  `json:"ColorTransfer"`
	IsDefault      bool    `json:"IsDefault"`
}
