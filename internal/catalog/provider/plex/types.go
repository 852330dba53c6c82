package plex

type sectionsResponse struct {
	MediaContainer struct {
		Directory []section `json:"Directory"`
	} `json:"MediaContainer"`
}

type section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // movie, show, artist, photo
}

type metadataResponse struct {
	MediaContainer struct {
		Size      int        `json:"size"`
		TotalSize int        `json:"totalSize"`
		Offset    int        `json:"offset"`
		Metadata  []metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type metadata struct {
	RatingKey            string  `json:"ratingKey"`
	Type                 string  `json:"type"` // movie, episode, show
	Title                string  `json:"title"`
	GrandparentRatingKey string  `json:"grandparentRatingKey"`
	GrandparentTitle     string  `json:"grandparentTitle"`
	Index                int     `json:"index"`
	ParentIndex          int     `json:"parentIndex"`
	Year                 int     `json:"year"`
	Thumb                string  `json:"thumb"`
	Art                  string  `json:"art"`
	GrandparentThumb     string  `json:"grandparentThumb"`
	UpdatedAt            int64   `json:"updatedAt"`
	Duration             int64   `json:"duration"`
	GUIDs                []guid  `json:"Guid"`
	Media                []media `json:"Media"`
}

type guid struct {
	ID string `json:"id"` // imdb://tt0113277, tmdb://949
}

type media struct {
	ID              int    `json:"id"`
	Duration        int64  `json:"duration"`
	Bitrate         int    `json:"bitrate"` // kbps
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	AudioChannels   int    `json:"audioChannels"`
	AudioCodec      string `json:"audioCodec"`
	AudioProfile    string `json:"audioProfile"`
	VideoCodec      string `json:"videoCodec"`
	VideoProfile    string `json:"videoProfile"`
	VideoFrameRate  string `json:"videoFrameRate"`
	VideoResolution string `json:"videoResolution"`
	Container       string `json:"container"`
	Parts           []part `json:"Part"`
}

type part struct {
	ID        int      `json:"id"`
	File      string   `json:"file"`
	Size      int64    `json:"size"`
	Duration  int64    `json:"duration"`
	Container string   `json:"container"`
	Streams   []stream `json:"Stream"`
}

// stream is only populated by /library/metadata/{id}.
type stream struct {
	StreamType           int     `json:"streamType"` // 1 video, 2 audio, 3 subtitle
	Index                int     `json:"index"`
	Codec                string  `json:"codec"`
	Profile              string  `json:"profile"`
	Bitrate              int     `json:"bitrate"` // kbps
	Channels             int     `json:"channels"`
	AudioChannelLayout   string  `json:"audioChannelLayout"`
	SamplingRate         int     `json:"samplingRate"`
	BitDepth             int     `json:"bitDepth"`
	Width                int     `json:"width"`
	Height               int     `json:"height"`
	FrameRate            float64 `json:"frameRate"`
	ColorPrimaries       string  `json:"colorPrimaries"`
	ColorTrc             string  `json:"colorTrc"`
	DOVIPresent          bool    `json:"DOVIPresent"`
	DOVIProfile          int     `json:"DOVIProfile"`
	LanguageCode         string  `json:"languageCode"`
	Title                string  `json:"title"`
	DisplayTitle         string  `json:"displayTitle"`
	ExtendedDisplayTitle string  `json:"extendedDisplayTitle"`
	Default              bool    `json:"default"`
}
