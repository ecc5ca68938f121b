package evaluation

// Questions is the canonical, domain-representative question set every
// study run is scored against.
var Questions = []string{
	"¿Qué garantías tienen los autos?",
	"¿Cuánto cuesta un Jetta?",
	"¿Qué modelos de Toyota tienen disponibles?",
	"¿Cuáles son los requisitos para financiamiento?",
	"¿Cómo funciona el proceso de compra?",
	"¿Qué cubre la inspección de 240 puntos?",
	"¿Puedo vender mi auto en Kavak?",
	"¿Qué formas de pago aceptan?",
	"¿Cuánto tiempo tarda la aprobación del crédito?",
	"¿Qué pasa si no me gusta el auto después de comprarlo?",
	"¿Tienen autos híbridos o eléctricos?",
	"¿Cuál es el kilometraje máximo de los autos?",
	"¿Ofrecen entrega a domicilio?",
	"¿Qué documentos necesito para comprar un auto?",
	"¿Puedo apartar un auto sin compromiso?",
}

// SampleRules is the fixed rule set staged for the improved pass. They
// stand in for what the learning loop accumulates over time.
var SampleRules = []string{
	"REGLA: Si preguntan por garantías, SIEMPRE mencionar garantía mecánica de 3 meses o 3,000 km Y garantía de satisfacción de 7 días.",
	"REGLA: Si preguntan por precios de autos, proporcionar rangos específicos: $120,000 - $800,000 MXN según marca, modelo y año.",
	"REGLA: Si preguntan por financiamiento, mencionar tasas (12.9%-24.9%), enganche mínimo 10%, y score de buró mínimo 550.",
	"REGLA: Si preguntan por inspección, especificar que son 240 puntos en 8 categorías y toma 2-3 horas.",
	"REGLA: Si preguntan por proceso de compra, enumerar los 7 pasos específicos desde búsqueda hasta entrega.",
	"REGLA: Si preguntan por modelos específicos, mencionar al menos 3 opciones con rangos de precio aproximados.",
	"REGLA: Si preguntan por documentos, listar específicamente: INE, comprobante domicilio, 3 últimos recibos de nómina.",
	"REGLA: Si preguntan por tiempos, ser específico: aprobación crédito 24-48 hrs, pago venta 24-48 hrs, inspección 30-45 min.",
}
