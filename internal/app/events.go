package app

// Server→client event names. Names mirror what the web client listens for.
const (
	EvtConnectionSuccess = "connection-success"

	EvtRoomJoined        = "room-joined"
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"
	EvtHostChanged       = "host-changed"

	EvtRtpCapabilities  = "rtp-capabilities"
	EvtTransportCreated = "transport-created"
	EvtProduced         = "produced"
	EvtConsumed         = "consumed"
	EvtProducers        = "producers"
	EvtNewProducer      = "new-producer"
	EvtProducerClosed   = "producer-closed"

	EvtNewMsg      = "newMsg"
	EvtCameraState = "cameraStateChanged"

	EvtQuizWaiting     = "quiz-waiting"
	EvtCountdownStart  = "countdown-start"
	EvtCountdownUpdate = "countdown-update"
	EvtQuestionUpdate  = "question-update"
	EvtTimeUpdate      = "time-update"
	EvtTimeOut         = "time-out"
	EvtQuizEnd         = "quiz-end"
	EvtQuizCompleted   = "quiz-completed"

	EvtError = "error"
)
