package i18n

const (
	KeyResultsTitle        = "auction-results.title"
	KeyResultsYouWin       = "auction-results.you-win"
	KeyResultsYouLose      = "auction-results.you-lose"
	KeyResultsPrevPrice    = "auction-results.prev-price"
	KeyResultsCurrentPrice = "auction-results.current-price"
)

var English = Dictionary{
	KeyResultsTitle:        "Auction results",
	KeyResultsYouWin:       "You have won!",
	KeyResultsYouLose:      "The other one won!",
	KeyResultsPrevPrice:    "Previous total price",
	KeyResultsCurrentPrice: "Current total price",
}

var Ukrainian = Dictionary{
	KeyResultsTitle:        "Результати аукціону",
	KeyResultsYouWin:       "Вітання, ви виграли!",
	KeyResultsYouLose:      "Нажаль, переміг інший учасник!",
	KeyResultsPrevPrice:    "Попередня ціна",
	KeyResultsCurrentPrice: "Поточна ціна",
}
