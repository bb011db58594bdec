package alias

import "github.com/nadzzz/domus/internal/message"

func typed(t message.DeviceType, groups ...Group) []Group {
	for i := range groups {
		if groups[i].Type == "" {
			groups[i].Type = t
		}
	}
	return groups
}

func deviceGroups() []Group {
	var all []Group
	all = append(all, typed(message.DeviceLight,
		Group{Canonical: "luz", Aliases: []string{
			"lámpara", "lampara", "foco", "bombilla", "bombillo",
			"iluminación", "iluminacion", "luminaria", "candela",
			"foquito", "lamparita", "lucecita", "lucesita",
			"light", "lamp", "bulb",
			"velador",
		}},
		Group{Canonical: "led", Aliases: []string{"tira led", "tira de led", "leds", "tiras led", "led strip"}},
		Group{Canonical: "spot", Aliases: []string{"spotlight", "dicroico", "dicroica", "ojo de buey"}},
		Group{Canonical: "plafon", Aliases: []string{"plafón", "lámpara de techo", "lampara de techo"}},
	)...)

	all = append(all, typed(message.DeviceFan,
		Group{Canonical: "ventilador", Aliases: []string{
			"abanico", "fan", "ventilación", "ventilacion",
			"aire", "venti", "turbina",
			"enfriador", "cooler",
			"aspas",
		}},
		Group{Canonical: "extractor", Aliases: []string{
			"extractor de aire", "extractora", "ventilador extractor",
			"campana extractora", "exhaust",
		}},
		Group{Canonical: "ventilador_techo", Aliases: []string{"ventilador de techo", "fan de techo", "abanico de techo"}},
	)...)

	all = append(all, typed(message.DeviceDoor,
		Group{Canonical: "puerta", Aliases: []string{
			"portón", "porton", "portal", "entrada",
			"door", "gate",
			"acceso", "paso",
		}},
		Group{Canonical: "garage", Aliases: []string{
			"garaje", "cochera", "parking", "estacionamiento",
			"puerta del garage", "puerta del garaje",
			"portón del garage", "porton del garaje",
		}},
		Group{Canonical: "puerta_principal", Aliases: []string{
			"puerta principal", "puerta de entrada", "entrada principal",
			"puerta delantera", "puerta frontal", "front door",
		}},
		Group{Canonical: "puerta_trasera", Aliases: []string{
			"puerta trasera", "puerta de atrás", "puerta de atras",
			"puerta del patio", "back door",
		}},
	)...)

	all = append(all, typed(message.DeviceWindow,
		Group{Canonical: "ventana", Aliases: []string{
			"ventanal", "window", "cristal",
			"vidriera", "vidrio",
			"ventanita", "ventanilla",
		}},
		Group{Canonical: "persiana", Aliases: []string{
			"persiana", "blind", "blinds",
			"celosía", "celosia",
			"estor", "store",
		}},
		Group{Canonical: "toldo", Aliases: []string{"toldo", "awning", "marquesina", "parasol"}},
	)...)

	all = append(all, typed(message.DeviceCurtain,
		Group{Canonical: "cortina", Aliases: []string{
			"cortinas", "curtain", "curtains",
			"visillo", "visillos",
			"drape", "drapes",
			"cortinado", "cortinaje",
			"blackout",
		}},
		Group{Canonical: "cortina_motorizada", Aliases: []string{
			"cortina eléctrica", "cortina electrica",
			"cortina motorizada", "cortina automática", "cortina automatica",
		}},
	)...)

	all = append(all, typed(message.DeviceLock,
		Group{Canonical: "cerradura", Aliases: []string{
			"cerrojo", "lock", "chapa",
			"seguro", "pestillo",
			"cerradura inteligente", "smart lock",
			"traba", "candado",
		}},
		Group{Canonical: "cerradura_principal", Aliases: []string{
			"cerradura principal", "cerradura de entrada",
			"chapa principal", "cerrojo principal",
		}},
	)...)

	all = append(all, typed(message.DeviceAlarm,
		Group{Canonical: "alarma", Aliases: []string{
			"alarm", "sirena", "alerta",
			"sistema de alarma", "sistema de seguridad",
			"alarma de seguridad", "security alarm",
		}},
		Group{Canonical: "detector", Aliases: []string{
			"detector de humo", "smoke detector",
			"detector de movimiento", "motion sensor",
			"sensor de presencia",
		}},
	)...)

	all = append(all, typed(message.DeviceSensor,
		Group{Canonical: "sensor", Aliases: []string{"sensor", "detector", "medidor"}},
		Group{Canonical: "sensor_temperatura", Aliases: []string{
			"termómetro", "termometro", "sensor de temperatura",
			"temperature sensor", "termo",
		}},
		Group{Canonical: "sensor_humedad", Aliases: []string{
			"higrómetro", "higrometro", "sensor de humedad",
			"humidity sensor",
		}},
		Group{Canonical: "sensor_movimiento", Aliases: []string{
			"sensor de movimiento", "detector de movimiento",
			"motion sensor", "PIR",
		}},
	)...)

	all = append(all, typed(message.DeviceThermostat,
		Group{Canonical: "aire_acondicionado", Aliases: []string{
			"aire", "ac", "a/c", "aire acondicionado",
			"climatizador", "split", "minisplit",
			"enfriador de aire", "air conditioner",
			"clima",
		}},
		Group{Canonical: "calefaccion", Aliases: []string{
			"calefacción", "calefactor", "estufa",
			"calentador", "heater", "heating",
			"radiador", "caldera",
		}},
		Group{Canonical: "termostato", Aliases: []string{
			"termostato", "thermostat",
			"control de temperatura", "regulador de temperatura",
		}},
	)...)

	all = append(all, typed(message.DeviceOther,
		Group{Canonical: "television", Aliases: []string{
			"tv", "tele", "televisor", "pantalla",
			"smart tv", "televisión",
		}},
		Group{Canonical: "enchufe", Type: message.DeviceSwitch, Aliases: []string{
			"enchufe inteligente", "smart plug", "tomacorriente",
			"toma", "socket", "outlet",
		}},
		Group{Canonical: "camara", Type: message.DeviceCamera, Aliases: []string{
			"cámara", "camera", "webcam",
			"cámara de seguridad", "security camera",
			"cámara ip", "ip camera",
		}},
		Group{Canonical: "timbre", Aliases: []string{
			"timbre", "doorbell", "campanilla",
			"timbre inteligente", "video doorbell",
		}},
		Group{Canonical: "riego", Aliases: []string{
			"sistema de riego", "riego", "aspersores",
			"sprinklers", "irrigación", "regadera automática",
		}},
	)...)
	return all
}

var roomGroups = []Group{
	{Canonical: "sala", Aliases: []string{
		"living", "salón", "salon", "sala de estar", "estancia",
		"living room", "lounge", "recibidor",
		"sala principal", "living principal",
	}},
	{Canonical: "cocina", Aliases: []string{
		"kitchen", "cocineta", "kitchenette",
		"área de cocina", "zona de cocina",
	}},
	{Canonical: "comedor", Aliases: []string{
		"dining", "dining room", "área de comedor",
		"zona de comedor", "antecomedor",
	}},

	{Canonical: "dormitorio", Aliases: []string{
		"habitación", "habitacion", "cuarto", "recámara", "recamara",
		"bedroom", "alcoba", "pieza",
		"cuarto de dormir", "aposento",
	}},
	{Canonical: "dormitorio_principal", Aliases: []string{
		"habitación principal", "cuarto principal", "recámara principal",
		"master bedroom", "dormitorio master", "suite principal",
		"cuarto matrimonial",
	}},
	{Canonical: "dormitorio_ninos", Aliases: []string{
		"habitación de niños", "cuarto de niños", "cuarto de los niños",
		"habitación infantil", "kids room", "cuarto de los chicos",
	}},
	{Canonical: "dormitorio_invitados", Aliases: []string{
		"habitación de invitados", "cuarto de invitados", "guest room",
		"cuarto de huéspedes", "habitación de huéspedes",
	}},

	{Canonical: "bano", Aliases: []string{
		"baño", "bathroom", "sanitario", "aseo", "servicio",
		"toilette", "toilet", "wc", "lavabo",
		"medio baño",
	}},
	{Canonical: "bano_principal", Aliases: []string{
		"baño principal", "baño master", "master bathroom",
		"baño de la habitación", "baño en suite",
	}},

	{Canonical: "oficina", Aliases: []string{
		"office", "despacho", "estudio", "home office",
		"cuarto de trabajo", "área de trabajo",
	}},
	{Canonical: "biblioteca", Aliases: []string{"library", "sala de lectura", "cuarto de lectura"}},

	{Canonical: "garage", Aliases: []string{"garaje", "cochera", "parking", "estacionamiento"}},
	{Canonical: "jardin", Aliases: []string{
		"jardín", "garden", "patio", "terraza", "balcón", "balcon",
		"área exterior", "exterior", "afuera",
		"quincho",
	}},
	{Canonical: "terraza", Aliases: []string{"terrace", "azotea", "rooftop", "mirador", "terraza techada"}},
	{Canonical: "patio", Aliases: []string{
		"patio trasero", "backyard", "traspatio",
		"patio delantero", "front yard",
	}},

	{Canonical: "lavanderia", Aliases: []string{
		"lavandería", "laundry", "cuarto de lavado",
		"área de lavado", "zona de lavado",
		"lavadero",
	}},
	{Canonical: "bodega", Aliases: []string{
		"almacén", "almacen", "storage", "despensa",
		"cuarto de almacenamiento", "trastero",
	}},

	{Canonical: "gym", Aliases: []string{
		"gimnasio", "gym", "sala de ejercicios",
		"cuarto de ejercicio", "home gym",
	}},
	{Canonical: "cine", Aliases: []string{
		"sala de cine", "home theater", "home cinema",
		"cuarto de tv", "sala de tv", "media room",
	}},

	{Canonical: "pasillo", Aliases: []string{
		"corredor", "hallway", "hall", "vestíbulo", "vestibulo",
		"entrada", "recibidor", "foyer",
	}},
	{Canonical: "escalera", Aliases: []string{"escaleras", "stairs", "stairway", "escalera principal"}},

	{Canonical: "planta_baja", Aliases: []string{
		"primer piso", "piso 1", "ground floor",
		"planta baja", "abajo", "nivel 1",
	}},
	{Canonical: "segundo_piso", Aliases: []string{
		"piso 2", "planta alta", "second floor",
		"arriba", "nivel 2", "piso de arriba",
	}},
	// "nivel -1" would normalize onto "nivel 1".
	{Canonical: "sotano", Aliases: []string{
		"sótano", "basement", "subsuelo",
		"nivel menos 1", "bajo tierra",
	}},
}

var actionGroups = []Group{
	{Canonical: "encender", Aliases: []string{
		"prender", "activar", "iniciar", "arrancar",
		"conectar", "dar luz", "iluminar", "turn on",
		"poner en marcha", "habilitar",
	}},
	{Canonical: "apagar", Aliases: []string{
		"desactivar", "detener", "parar", "desconectar",
		"cortar", "quitar", "turn off",
		"inhabilitar", "deshabilitar",
	}},
	{Canonical: "abrir", Aliases: []string{
		"despejar", "descorrer", "levantar", "subir",
		"destapar", "destrabar", "open",
	}},
	{Canonical: "cerrar", Aliases: []string{
		"correr", "bajar", "tapar", "bloquear",
		"trabar", "close",
	}},
	{Canonical: "consultar", Aliases: []string{
		"verificar", "revisar", "checar", "chequear",
		"ver", "mostrar", "status", "check",
	}},
}
