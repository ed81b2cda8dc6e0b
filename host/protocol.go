package host

const (
	MethodStartGame        = "host.start_game"
	MethodEndGame          = "host.end_game"
	MethodUpdateDifficulty = "host.update_difficulty"

	MethodGetDrawing     = "player.get_drawing"
	MethodKick           = "player.kick"
	MethodCaughtCheating = "player.caught_cheating"
)

const (
	TopicDrawLine     = "player.draw_line"
	TopicClearDrawing = "player.clear_drawing"
	TopicGuess        = "host.guess"
)

const RoomFullReason = "The room is full!"
