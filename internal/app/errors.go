package app

import "fmt"

var (
	// ErrNoData means the server could not be reached and nothing usable was
	// cached for the city.
	ErrNoData = fmt.Errorf("server unreachable and no saved timings")
	// ErrUnknownCity is returned for a city outside the supported list.
	ErrUnknownCity = fmt.Errorf("unknown city")
	// ErrInvalidSettings wraps validation failures of user settings.
	ErrInvalidSettings = fmt.Errorf("invalid settings")
)

// NoDataMessage is the text shown to the user alongside ErrNoData.
const NoDataMessage = "تعذر الاتصال بالخادم ولا توجد بيانات محفوظة."
