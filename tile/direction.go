package tile

// Direction is one of the 8 compass directions around a tile.
type Direction uint8

// Directions in mosaic order.
const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// Directions lists all 8 neighbor directions, clockwise from North.
var Directions = [8]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionNames = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// directionOffsets holds the (dx, dy) step for each direction.
// Y grows southward, as in the XYZ scheme.
var directionOffsets = [8][2]int{
	{0, -1},
	{1, -1},
	{1, 0},
	{1, 1},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{-1, -1},
}

// Offset returns the x and y step of the direction.
func (d Direction) Offset() (dx, dy int) {
	if int(d) >= len(directionOffsets) {
		return 0, 0
	}
	o := directionOffsets[d]
	return o[0], o[1]
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 4) % 8
}

// String returns the compass abbreviation ("N", "NE", ...).
func (d Direction) String() string {
	if int(d) >= len(directionNames) {
		return "?"
	}
	return directionNames[d]
}
