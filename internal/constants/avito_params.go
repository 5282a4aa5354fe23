package constants

// Внутренний data-endpoint выдачи и базовый адрес сайта
const (
	AvitoAPIURL  = "https://www.avito.ru/web/1/main/items"
	AvitoBaseURL = "https://www.avito.ru"
)

// Locations
const (
	Moscow = "637640"
)

// Categories
const (
	ApartmentCategory = "24"
)

// Params
const (
	RentParamLongTerm = "1059" // params[549]: длительная аренда
)

// Sort Options
const (
	SortByDateDesc = "date" // Свежие объявления первыми
)

const MaxAdsAmount = 50

// ChallengeMarkers - фрагменты текста страницы, означающие блокировку или
// антибот-проверку. Сравнение регистронезависимое.
var ChallengeMarkers = []string{
	"доступ ограничен",
	"доступ с вашего ip-адреса временно ограничен",
	"подтвердите, что вы не робот",
	"проверка, что вы не робот",
	"captcha",
}

// ChallengePaths - фрагменты конечного URL, на которые уводит антибот-редирект.
var ChallengePaths = []string{
	"/blocked",
	"/captcha",
	"firewall",
}

// DefaultTargetStations - целевые станции метро по умолчанию: кольцевая линия
// плюс дополнительные станции.
var DefaultTargetStations = []string{
	// Кольцевая линия
	"киевская", "парк культуры", "октябрьская", "добрынинская",
	"павелецкая", "таганская", "курская", "комсомольская",
	"проспект мира", "новослободская", "белорусская", "краснопресненская",

	// Дополнительные станции
	"римская", "нижегородская", "бауманская", "марьина роща",
	"трубная", "менделеевская", "крестьянская застава",
	"дубровка", "кожуховская", "текстильщики",
}

// DefaultPreferredRepair - формулировки желанного ремонта для оценки качества.
var DefaultPreferredRepair = []string{
	"евроремонт", "дизайнерский ремонт", "хороший ремонт",
}

// Критерии фильтрации по умолчанию, если файл критериев не задан.
const (
	DefaultMaxPrice       = 75000 // рублей в месяц
	DefaultMinArea        = 35.0  // м²
	DefaultMaxWalkMinutes = 15
)

// DefaultAllowedRooms - допустимое количество комнат по умолчанию.
var DefaultAllowedRooms = []int{1, 2}
