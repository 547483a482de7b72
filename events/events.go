package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/openglasses/gazed/types/gaze"
)

// DetectedEventFeed is emitted for every gaze event a detector classifies:
// fixation starts/ends and saccade starts/ends.
var DetectedEventFeed = event.FeedOf[gaze.Event]{}

// GazeSampleFeed is a feed of the 2D gaze positions accepted off the wire,
// sentinels excluded. It is a monitoring surface, not a lossless record of
// the stream.
var GazeSampleFeed = event.FeedOf[gaze.GazePoint]{}
