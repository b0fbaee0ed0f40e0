package domain

// DefaultCarMakes is served when the vehicle reference store is empty.
var DefaultCarMakes = []string{
	"Audi", "BMW", "Chevrolet", "Ford", "Honda", "Hyundai", "Infiniti",
	"Kia", "Lexus", "Mazda", "Mercedes-Benz", "Mitsubishi", "Nissan",
	"Peugeot", "Porsche", "Renault", "Subaru", "Suzuki", "Toyota",
	"Volkswagen", "Volvo",
}

// DefaultVehicles seeds the vehicle reference store on first start.
func DefaultVehicles() []Vehicle {
	return []Vehicle{
		{Make: "Toyota", Model: "Camry", YearFrom: 2015, YearTo: 2024, EngineType: "petrol"},
		{Make: "Toyota", Model: "Corolla", YearFrom: 2014, YearTo: 2024, EngineType: "petrol"},
		{Make: "Toyota", Model: "Land Cruiser", YearFrom: 2010, YearTo: 2024, EngineType: "petrol"},
		{Make: "Toyota", Model: "Prado", YearFrom: 2010, YearTo: 2024, EngineType: "petrol"},
		{Make: "Toyota", Model: "RAV4", YearFrom: 2015, YearTo: 2024, EngineType: "hybrid"},
		{Make: "Honda", Model: "Accord", YearFrom: 2015, YearTo: 2024, EngineType: "petrol"},
		{Make: "Honda", Model: "Civic", YearFrom: 2015, YearTo: 2024, EngineType: "petrol"},
		{Make: "Honda", Model: "CR-V", YearFrom: 2015, YearTo: 2024, EngineType: "petrol"},
		{Make: "Honda", Model: "Pilot", YearFrom: 2016, YearTo: 2024, EngineType: "petrol"},
		{Make: "BMW", Model: "3 Series", YearFrom: 2012, YearTo: 2024, EngineType: "petrol"},
		{Make: "BMW", Model: "5 Series", YearFrom: 2012, YearTo: 2024, EngineType: "petrol"},
		{Make: "BMW", Model: "X3", YearFrom: 2012, YearTo: 2024, EngineType: "petrol"},
		{Make: "BMW", Model: "X5", YearFrom: 2012, YearTo: 2024, EngineType: "petrol"},
		{Make: "Mercedes-Benz", Model: "C-Class", YearFrom: 2014, YearTo: 2024, EngineType: "petrol"},
		{Make: "Mercedes-Benz", Model: "E-Class", YearFrom: 2014, YearTo: 2024, EngineType: "petrol"},
		{Make: "Mercedes-Benz", Model: "GLE", YearFrom: 2015, YearTo: 2024, EngineType: "petrol"},
		{Make: "Mercedes-Benz", Model: "S-Class", YearFrom: 2014, YearTo: 2024, EngineType: "petrol"},
		{Make: "Nissan", Model: "Altima", YearFrom: 2013, YearTo: 2024, EngineType: "petrol"},
		{Make: "Nissan", Model: "Patrol", YearFrom: 2010, YearTo: 2024, EngineType: "petrol"},
		{Make: "Nissan", Model: "Sunny", YearFrom: 2012, YearTo: 2024, EngineType: "petrol"},
		{Make: "Nissan", Model: "X-Trail", YearFrom: 2014, YearTo: 2024, EngineType: "petrol"},
	}
}
